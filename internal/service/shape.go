package service

import (
	"time"

	"github.com/hippocampai/memgate/internal/store"
)

// Memory is the caller-facing shape of a stored record. Field names are
// the caller vocabulary ("type", not "kind") and timestamps are
// ISO-8601 strings, never backend-native objects.
type Memory struct {
	ID             string   `json:"id"`
	Text           string   `json:"text"`
	Kind           string   `json:"type"`
	Importance     *float64 `json:"importance,omitempty"`
	Tags           []string `json:"tags"`
	ExtractedFacts []string `json:"extracted_facts,omitempty"`
	CreatedAt      string   `json:"created_at,omitempty"`
}

// RecalledMemory is one ranked search result.
type RecalledMemory struct {
	MemoryID   string   `json:"memory_id"`
	Text       string   `json:"text"`
	Score      float64  `json:"score"`
	Kind       string   `json:"type"`
	Importance *float64 `json:"importance,omitempty"`
	Tags       []string `json:"tags"`
	SessionID  string   `json:"session_id,omitempty"`
	AgentID    string   `json:"agent_id,omitempty"`
	CreatedAt  string   `json:"created_at,omitempty"`
}

// RecallResponse always echoes the query and carries a count, even for
// an empty result set.
type RecallResponse struct {
	Query   string           `json:"query"`
	Count   int              `json:"count"`
	Results []RecalledMemory `json:"results"`
}

// ListedMemory is one browsed record; listings carry no score.
type ListedMemory struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Kind       string   `json:"type"`
	Importance *float64 `json:"importance,omitempty"`
	Tags       []string `json:"tags"`
	SessionID  string   `json:"session_id,omitempty"`
	CreatedAt  string   `json:"created_at,omitempty"`
}

// ListResponse carries the count plus the shaped records.
type ListResponse struct {
	Count    int            `json:"count"`
	Memories []ListedMemory `json:"memories"`
}

// UpdatedMemory is the shape returned after a successful update.
type UpdatedMemory struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Importance *float64 `json:"importance,omitempty"`
	Tags       []string `json:"tags"`
}

// DeleteResponse reports whether the target existed and was removed.
type DeleteResponse struct {
	Success bool `json:"success"`
}

func shapeMemory(r *store.Record) *Memory {
	return &Memory{
		ID:             r.ID,
		Text:           r.Text,
		Kind:           r.Kind,
		Importance:     r.Importance,
		Tags:           tagsOrEmpty(r.Tags),
		ExtractedFacts: r.ExtractedFacts,
		CreatedAt:      isoTime(r.CreatedAt),
	}
}

func shapeHit(h store.SearchHit) RecalledMemory {
	return RecalledMemory{
		MemoryID:   h.ID,
		Text:       h.Text,
		Score:      h.Score,
		Kind:       h.Kind,
		Importance: h.Importance,
		Tags:       tagsOrEmpty(h.Tags),
		SessionID:  h.SessionID,
		AgentID:    h.AgentID,
		CreatedAt:  isoTime(h.CreatedAt),
	}
}

func shapeListed(r store.Record) ListedMemory {
	return ListedMemory{
		ID:         r.ID,
		Text:       r.Text,
		Kind:       r.Kind,
		Importance: r.Importance,
		Tags:       tagsOrEmpty(r.Tags),
		SessionID:  r.SessionID,
		CreatedAt:  isoTime(r.CreatedAt),
	}
}

// isoTime renders a backend timestamp as ISO-8601, or "" when the
// backend did not supply one.
func isoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
