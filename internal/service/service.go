// Package service orchestrates memory operations: it resolves and
// validates scope, applies the access rules, translates the
// caller-facing vocabulary into store parameters, and shapes store
// results back into caller-facing records. It holds no state between
// calls; every call re-validates from scratch.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hippocampai/memgate/internal/access"
	"github.com/hippocampai/memgate/internal/memory"
	"github.com/hippocampai/memgate/internal/store"
)

// ErrMemoryNotFound signals that an update targeted a memory that does
// not exist. It is an expected outcome, not a fault.
var ErrMemoryNotFound = store.ErrNotFound

const (
	defaultRecallK   = 5
	defaultListLimit = 50
	defaultSortBy    = "created_at"
	defaultOrder     = "desc"
)

// Service is the orchestration core behind the memory tools. The store
// handle is injected at construction; the service never reaches the
// backend any other way.
type Service struct {
	store  store.Store
	access *access.Controller
}

// New creates a Service over the given store.
func New(st store.Store) *Service {
	return &Service{store: st, access: access.NewController()}
}

// inferScope picks a scope for writes that omit one: an agent id means
// agent scope, else a project id means project scope, else a session id
// means session scope, else the write is a user preference. Inference
// never bypasses the field matrix; the result is validated like an
// explicit scope.
func inferScope(projectID, agentID, sessionID string) memory.Scope {
	switch {
	case agentID != "":
		return memory.ScopeAgent
	case projectID != "":
		return memory.ScopeProject
	case sessionID != "":
		return memory.ScopeSession
	default:
		return memory.ScopeUserPreference
	}
}

// RememberParams is the caller-facing write vocabulary. Scope may be a
// scope string or empty (inferred).
type RememberParams struct {
	Text       string
	UserID     string
	Scope      string
	ProjectID  string
	AgentID    string
	SessionID  string
	Kind       string
	Importance *float64
	Tags       []string
	TTLDays    int
	Visibility string
	RunID      string
}

// Remember validates and stores one memory. A validation failure fails
// the whole operation before any store call; on success exactly one
// store mutation happens.
func (s *Service) Remember(ctx context.Context, p RememberParams) (*Memory, error) {
	scope, ok, err := s.access.ParseScope(p.Scope)
	if err != nil {
		return nil, err
	}
	if !ok {
		scope = inferScope(p.ProjectID, p.AgentID, p.SessionID)
	}

	var visibility memory.Visibility
	if scope == memory.ScopeAgent {
		visibility, err = s.access.NormalizeVisibility(p.Visibility)
		if err != nil {
			return nil, err
		}
	}

	req, err := memory.NewWriteRequest(memory.WriteRequest{
		Text:       p.Text,
		UserID:     p.UserID,
		Scope:      scope,
		Kind:       memory.Kind(nonEmpty(p.Kind, string(memory.DefaultKind))),
		ProjectID:  p.ProjectID,
		AgentID:    p.AgentID,
		SessionID:  p.SessionID,
		Tags:       p.Tags,
		Importance: p.Importance,
		Visibility: visibility,
		RunID:      p.RunID,
	})
	if err != nil {
		return nil, access.Wrap(err)
	}

	metadata := map[string]any{}
	if req.RunID != "" {
		metadata["run_id"] = req.RunID
	}
	if req.Scope == memory.ScopeAgent {
		metadata["visibility"] = string(req.Visibility)
	}

	rec, err := s.store.Remember(ctx, store.RememberParams{
		Text:       req.Text,
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Kind:       string(req.Kind),
		Importance: req.Importance,
		Tags:       req.Tags,
		AgentID:    req.AgentID,
		ProjectID:  req.ProjectID,
		TTLDays:    p.TTLDays,
		Scope:      req.Scope,
		Metadata:   metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("store remember: %w", err)
	}
	return shapeMemory(rec), nil
}

// RememberProjectMemory is a convenience wrapper that pins project
// scope and delegates to Remember, which re-validates regardless.
func (s *Service) RememberProjectMemory(ctx context.Context, p RememberParams, projectID string) (*Memory, error) {
	p.Scope = memory.ScopeProject.String()
	p.ProjectID = projectID
	return s.Remember(ctx, p)
}

// RememberAgentMemory pins agent scope.
func (s *Service) RememberAgentMemory(ctx context.Context, p RememberParams, projectID, agentID string) (*Memory, error) {
	p.Scope = memory.ScopeAgent.String()
	p.ProjectID = projectID
	p.AgentID = agentID
	return s.Remember(ctx, p)
}

// RememberUserPreference pins user-preference scope.
func (s *Service) RememberUserPreference(ctx context.Context, p RememberParams) (*Memory, error) {
	p.Scope = memory.ScopeUserPreference.String()
	p.ProjectID = ""
	p.AgentID = ""
	return s.Remember(ctx, p)
}

// RecallParams is the caller-facing search vocabulary.
type RecallParams struct {
	Query             string
	UserID            string
	Scope             string
	ProjectID         string
	AgentID           string
	SessionID         string
	K                 int
	MinImportance     *float64
	Kind              string
	Tags              []string
	IncludeCrossScope bool
}

// Recall searches memories under the recall scope policy: a missing
// scope fails closed unless the caller explicitly opted into
// cross-scope search. The response always carries the echoed query and
// a count, even when empty.
func (s *Service) Recall(ctx context.Context, p RecallParams) (*RecallResponse, error) {
	scope, _, err := s.access.EnforceRecallScope(p.Scope, p.ProjectID, p.AgentID, p.SessionID, p.IncludeCrossScope)
	if err != nil {
		return nil, err
	}

	k := p.K
	if k <= 0 {
		k = defaultRecallK
	}

	hits, err := s.store.Recall(ctx, store.RecallParams{
		Query:         p.Query,
		UserID:        p.UserID,
		SessionID:     p.SessionID,
		K:             k,
		MinImportance: p.MinImportance,
		Kind:          p.Kind,
		Tags:          p.Tags,
		AgentID:       p.AgentID,
		ProjectID:     p.ProjectID,
		Scope:         scope,
	})
	if err != nil {
		return nil, fmt.Errorf("store recall: %w", err)
	}

	resp := &RecallResponse{
		Query:   p.Query,
		Count:   len(hits),
		Results: make([]RecalledMemory, 0, len(hits)),
	}
	for _, h := range hits {
		resp.Results = append(resp.Results, shapeHit(h))
	}
	return resp, nil
}

// RecallProjectContext pins project scope.
func (s *Service) RecallProjectContext(ctx context.Context, p RecallParams, projectID string) (*RecallResponse, error) {
	p.Scope = memory.ScopeProject.String()
	p.ProjectID = projectID
	return s.Recall(ctx, p)
}

// RecallAgentContext pins agent scope.
func (s *Service) RecallAgentContext(ctx context.Context, p RecallParams, projectID, agentID string) (*RecallResponse, error) {
	p.Scope = memory.ScopeAgent.String()
	p.ProjectID = projectID
	p.AgentID = agentID
	return s.Recall(ctx, p)
}

// RecallUserPreferences pins user-preference scope.
func (s *Service) RecallUserPreferences(ctx context.Context, p RecallParams) (*RecallResponse, error) {
	p.Scope = memory.ScopeUserPreference.String()
	p.ProjectID = ""
	p.AgentID = ""
	return s.Recall(ctx, p)
}

// ListParams is the caller-facing listing vocabulary.
type ListParams struct {
	UserID    string
	Scope     string
	ProjectID string
	AgentID   string
	SessionID string
	Kind      string
	Tags      []string
	Limit     int
	SortBy    string
	Order     string
}

// List browses memories. Scope is optional here: a scoped listing is
// validated against the field matrix, but an unscoped one is allowed
// without the cross-scope opt-in because listing is already bounded to
// the caller's own user id.
func (s *Service) List(ctx context.Context, p ListParams) (*ListResponse, error) {
	scope, ok, err := s.access.ParseScope(p.Scope)
	if err != nil {
		return nil, err
	}
	if ok {
		req, err := memory.NewReadRequest(memory.ReadRequest{
			UserID:    p.UserID,
			Scope:     scope,
			ProjectID: p.ProjectID,
			AgentID:   p.AgentID,
			SessionID: p.SessionID,
		})
		if err != nil {
			return nil, access.Wrap(err)
		}
		scope = req.Scope
	}

	limit := p.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	records, err := s.store.List(ctx, store.ListParams{
		UserID:    p.UserID,
		Kind:      p.Kind,
		Tags:      p.Tags,
		SessionID: p.SessionID,
		AgentID:   p.AgentID,
		ProjectID: p.ProjectID,
		Scope:     scope,
		Limit:     limit,
		SortBy:    nonEmpty(p.SortBy, defaultSortBy),
		Order:     nonEmpty(p.Order, defaultOrder),
	})
	if err != nil {
		return nil, fmt.Errorf("store list: %w", err)
	}

	resp := &ListResponse{
		Count:    len(records),
		Memories: make([]ListedMemory, 0, len(records)),
	}
	for _, r := range records {
		resp.Memories = append(resp.Memories, shapeListed(r))
	}
	return resp, nil
}

// recentWindows is the caller vocabulary for lookback periods.
var recentWindows = map[string]time.Duration{
	"LASTHOUR":  time.Hour,
	"LASTDAY":   24 * time.Hour,
	"LASTWEEK":  7 * 24 * time.Hour,
	"LASTMONTH": 30 * 24 * time.Hour,
	"LASTYEAR":  365 * 24 * time.Hour,
}

const (
	defaultRecentWindow = "LASTDAY"
	recentFetchLimit    = 500
)

// RecentResponse lists the memories created inside a lookback window.
type RecentResponse struct {
	Memories   []ListedMemory `json:"memories"`
	Count      int            `json:"count"`
	TimeWindow string         `json:"time_window"`
}

// RecentMemories lists memories created inside the lookback window,
// newest first. An unknown window falls back to the last day. A project
// filter matches through the project identity tag, so it catches
// project and agent memories alike.
func (s *Service) RecentMemories(ctx context.Context, userID, window, projectID string) (*RecentResponse, error) {
	w := strings.ToUpper(window)
	d, ok := recentWindows[w]
	if !ok {
		w = defaultRecentWindow
		d = recentWindows[w]
	}

	var tags []string
	if projectID != "" {
		tags = []string{store.TagProjectPrefix + projectID}
	}

	records, err := s.store.List(ctx, store.ListParams{
		UserID: userID,
		Tags:   tags,
		Limit:  recentFetchLimit,
		SortBy: defaultSortBy,
		Order:  defaultOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("store list: %w", err)
	}

	cutoff := time.Now().Add(-d)
	resp := &RecentResponse{TimeWindow: w, Memories: []ListedMemory{}}
	for _, r := range records {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		resp.Memories = append(resp.Memories, shapeListed(r))
	}
	resp.Count = len(resp.Memories)
	return resp, nil
}

// UpdateParams mutates text, importance and tags only; scope and
// identity are immutable after creation.
type UpdateParams struct {
	MemoryID   string
	UserID     string
	Text       *string
	Importance *float64
	Tags       []string
}

// Update mutates a memory. A missing target surfaces as
// ErrMemoryNotFound, distinct from a backend failure.
func (s *Service) Update(ctx context.Context, p UpdateParams) (*UpdatedMemory, error) {
	if err := s.access.RequireActor(p.UserID, "update"); err != nil {
		return nil, err
	}

	rec, err := s.store.Update(ctx, store.UpdateParams{
		MemoryID:   p.MemoryID,
		Text:       p.Text,
		Importance: p.Importance,
		Tags:       p.Tags,
		UserID:     p.UserID,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMemoryNotFound
		}
		return nil, fmt.Errorf("store update: %w", err)
	}
	if rec == nil {
		return nil, ErrMemoryNotFound
	}

	return &UpdatedMemory{
		ID:         rec.ID,
		Text:       rec.Text,
		Importance: rec.Importance,
		Tags:       tagsOrEmpty(rec.Tags),
	}, nil
}

// Delete removes a memory. Absence of the target is not an error, just
// success=false.
func (s *Service) Delete(ctx context.Context, memoryID, userID string) (*DeleteResponse, error) {
	if err := s.access.RequireActor(userID, "delete"); err != nil {
		return nil, err
	}
	ok, err := s.store.Delete(ctx, memoryID, userID)
	if err != nil {
		return nil, fmt.Errorf("store delete: %w", err)
	}
	return &DeleteResponse{Success: ok}, nil
}

// Stats passes user-wide aggregate counts through from the store.
// Statistics carry no scope logic.
func (s *Service) Stats(ctx context.Context, userID string) (map[string]any, error) {
	stats, err := s.store.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("store stats: %w", err)
	}
	return stats, nil
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
