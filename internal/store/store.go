// Package store defines the capability contract every memory backend
// adapter must satisfy, plus the tag/metadata encoding that folds scope
// and identity into the backend's native filtering vocabulary. The
// service layer talks to persistence only through this contract, so
// backends can be swapped without touching the core.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/hippocampai/memgate/internal/memory"
)

// ErrNotFound is returned when an update targets a memory that does not
// exist. Absence is an expected outcome, not a system fault; callers
// check it with errors.Is.
var ErrNotFound = errors.New("memory not found")

// Record is a stored memory as an adapter reports it back. Identity
// fields are folded into tags/metadata on the way in; adapters that can
// recover them populate SessionID/AgentID/ProjectID on the way out.
type Record struct {
	ID             string
	Text           string
	Kind           string
	Importance     *float64
	Tags           []string
	SessionID      string
	AgentID        string
	ProjectID      string
	ExtractedFacts []string
	CreatedAt      time.Time // zero when the backend does not supply one
}

// SearchHit is a recall result with its relevance score. Scores are
// opaque: higher means more relevant, with no cross-backend
// normalization guarantee.
type SearchHit struct {
	Record
	Score float64
}

// RememberParams carries a validated write to an adapter. Scope is
// always resolved by the service before the call.
type RememberParams struct {
	Text       string
	UserID     string
	SessionID  string
	Kind       string
	Importance *float64
	Tags       []string
	AgentID    string
	ProjectID  string
	TTLDays    int // 0 means no expiry
	Scope      memory.Scope
	Metadata   map[string]any
}

// RecallParams carries a validated search. An empty Scope means the
// caller explicitly opted into cross-scope search.
type RecallParams struct {
	Query         string
	UserID        string
	SessionID     string
	K             int
	MinImportance *float64
	Kind          string
	Tags          []string
	AgentID       string
	ProjectID     string
	Scope         memory.Scope
}

// UpdateParams mutates text, importance and tags only. Scope and
// identity are immutable after creation; no update can re-scope a
// record.
type UpdateParams struct {
	MemoryID   string
	Text       *string
	Importance *float64
	Tags       []string // nil leaves tags unchanged
	UserID     string
}

// ListParams filters a bounded listing. Tag filters use AND semantics.
type ListParams struct {
	UserID    string
	Kind      string
	Tags      []string
	SessionID string
	AgentID   string
	ProjectID string
	Scope     memory.Scope // "" means no scope constraint
	Limit     int
	SortBy    string
	Order     string
}

// Capabilities describes what a backend supports. It is negotiated once
// at adapter construction so the core can report gaps predictably
// instead of discovering them through failed calls.
type Capabilities struct {
	// Metadata is true when the backend accepts a metadata map on
	// writes. Adapters for backends without it silently drop metadata
	// rather than failing the write.
	Metadata bool

	// Telemetry is true when the backend exposes its own operation
	// metrics.
	Telemetry bool
}

// Store is the abstract capability set a memory backend adapter
// provides. Implementations must fold scope/project/agent identity into
// their native filtering primitive (see EncodeTags/EncodeMetadata),
// preserve tag insertion order, de-duplicate exact tag matches, and
// apply AND semantics to tag filters.
type Store interface {
	Remember(ctx context.Context, p RememberParams) (*Record, error)
	Recall(ctx context.Context, p RecallParams) ([]SearchHit, error)
	Update(ctx context.Context, p UpdateParams) (*Record, error)
	Delete(ctx context.Context, memoryID, userID string) (bool, error)
	List(ctx context.Context, p ListParams) ([]Record, error)
	Stats(ctx context.Context, userID string) (map[string]any, error)

	Capabilities() Capabilities
	Close() error
}
