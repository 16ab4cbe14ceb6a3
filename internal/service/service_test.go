package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hippocampai/memgate/internal/access"
	"github.com/hippocampai/memgate/internal/memory"
	"github.com/hippocampai/memgate/internal/store"
)

// stubStore records the parameters of every call so tests can assert
// what the service sent across the contract.
type stubStore struct {
	rememberCalls []store.RememberParams
	recallCalls   []store.RecallParams
	listCalls     []store.ListParams
	updateCalls   []store.UpdateParams
	deleteCalls   int

	updateResult *store.Record
	deleteResult bool
	listResult   []store.Record
}

func (s *stubStore) Remember(_ context.Context, p store.RememberParams) (*store.Record, error) {
	s.rememberCalls = append(s.rememberCalls, p)
	return &store.Record{
		ID:   "mem-1",
		Text: p.Text,
		Kind: p.Kind,
		Tags: p.Tags,
	}, nil
}

func (s *stubStore) Recall(_ context.Context, p store.RecallParams) ([]store.SearchHit, error) {
	s.recallCalls = append(s.recallCalls, p)
	imp := 0.7
	return []store.SearchHit{{
		Record: store.Record{
			ID:         "m1",
			Text:       "remember me",
			Kind:       "context",
			Importance: &imp,
			Tags:       []string{"scope:project"},
			SessionID:  "s1",
			AgentID:    p.AgentID,
			CreatedAt:  time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		},
		Score: 0.9,
	}}, nil
}

func (s *stubStore) Update(_ context.Context, p store.UpdateParams) (*store.Record, error) {
	s.updateCalls = append(s.updateCalls, p)
	if s.updateResult == nil {
		return nil, store.ErrNotFound
	}
	return s.updateResult, nil
}

func (s *stubStore) Delete(context.Context, string, string) (bool, error) {
	s.deleteCalls++
	return s.deleteResult, nil
}

func (s *stubStore) List(_ context.Context, p store.ListParams) ([]store.Record, error) {
	s.listCalls = append(s.listCalls, p)
	return s.listResult, nil
}

func (s *stubStore) Stats(context.Context, string) (map[string]any, error) {
	return map[string]any{"total": 0}, nil
}

func (s *stubStore) Capabilities() store.Capabilities { return store.Capabilities{Metadata: true} }

func (s *stubStore) Close() error { return nil }

func TestRememberProjectMemoryScopesToProject(t *testing.T) {
	st := &stubStore{}
	svc := New(st)

	mem, err := svc.RememberProjectMemory(context.Background(), RememberParams{
		Text:   "Use table-driven tests",
		UserID: "u1",
	}, "proj-1")
	if err != nil {
		t.Fatalf("RememberProjectMemory: %v", err)
	}
	if mem.ID != "mem-1" {
		t.Errorf("ID = %q, want mem-1", mem.ID)
	}

	call := st.rememberCalls[0]
	if call.Scope != memory.ScopeProject {
		t.Errorf("scope = %q, want project", call.Scope)
	}
	if call.ProjectID != "proj-1" {
		t.Errorf("project_id = %q, want proj-1", call.ProjectID)
	}
}

func TestRememberAgentMemoryIncludesVisibilityMetadata(t *testing.T) {
	st := &stubStore{}
	svc := New(st)

	_, err := svc.RememberAgentMemory(context.Background(), RememberParams{
		Text:       "Agent-specific workaround",
		UserID:     "u1",
		Visibility: "shared",
	}, "proj-1", "agent-1")
	if err != nil {
		t.Fatalf("RememberAgentMemory: %v", err)
	}

	call := st.rememberCalls[0]
	if call.Scope != memory.ScopeAgent {
		t.Errorf("scope = %q, want agent", call.Scope)
	}
	if call.Metadata["visibility"] != "shared" {
		t.Errorf("metadata visibility = %v, want shared", call.Metadata["visibility"])
	}
}

func TestRememberFailsFastOnMatrixViolation(t *testing.T) {
	st := &stubStore{}
	svc := New(st)

	_, err := svc.Remember(context.Background(), RememberParams{
		Text:    "a",
		UserID:  "u1",
		Scope:   "agent",
		AgentID: "a1", // project_id missing
	})
	if !access.IsAccessError(err) {
		t.Fatalf("error = %v, want access error", err)
	}
	var se *memory.ScopeError
	if !errors.As(err, &se) || se.Field != "project_id" {
		t.Errorf("error does not name project_id: %v", err)
	}
	if len(st.rememberCalls) != 0 {
		t.Error("store was called despite validation failure")
	}
}

func TestRememberInfersScope(t *testing.T) {
	tests := []struct {
		name string
		p    RememberParams
		want memory.Scope
	}{
		{"agent_id_wins", RememberParams{Text: "a", UserID: "u1", ProjectID: "p1", AgentID: "a1", SessionID: "s1"}, memory.ScopeAgent},
		{"project_id_next", RememberParams{Text: "a", UserID: "u1", ProjectID: "p1", SessionID: "s1"}, memory.ScopeProject},
		{"session_id_next", RememberParams{Text: "a", UserID: "u1", SessionID: "s1"}, memory.ScopeSession},
		{"default_user_preference", RememberParams{Text: "a", UserID: "u1"}, memory.ScopeUserPreference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &stubStore{}
			svc := New(st)
			if _, err := svc.Remember(context.Background(), tt.p); err != nil {
				t.Fatalf("Remember: %v", err)
			}
			if got := st.rememberCalls[0].Scope; got != tt.want {
				t.Errorf("inferred scope = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRememberRunIDMetadata(t *testing.T) {
	st := &stubStore{}
	svc := New(st)

	_, err := svc.Remember(context.Background(), RememberParams{
		Text:   "a",
		UserID: "u1",
		RunID:  "run-7",
	})
	if err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if st.rememberCalls[0].Metadata["run_id"] != "run-7" {
		t.Errorf("metadata = %v, want run_id=run-7", st.rememberCalls[0].Metadata)
	}
}

func TestRecallCrossScopeDefaultDeny(t *testing.T) {
	st := &stubStore{}
	svc := New(st)

	_, err := svc.Recall(context.Background(), RecallParams{
		Query:  "anything",
		UserID: "u1",
	})
	if !access.IsAccessError(err) {
		t.Fatalf("error = %v, want access error", err)
	}
	if len(st.recallCalls) != 0 {
		t.Error("store was called despite denied recall")
	}
}

func TestRecallCrossScopeOptIn(t *testing.T) {
	st := &stubStore{}
	svc := New(st)

	resp, err := svc.Recall(context.Background(), RecallParams{
		Query:             "anything",
		UserID:            "u1",
		IncludeCrossScope: true,
	})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if st.recallCalls[0].Scope != "" {
		t.Errorf("scope = %q, want none", st.recallCalls[0].Scope)
	}
	if resp.Query != "anything" || resp.Count != 1 {
		t.Errorf("response = %+v, want echoed query and count", resp)
	}
}

func TestRecallProjectContextShapesResults(t *testing.T) {
	st := &stubStore{}
	svc := New(st)

	resp, err := svc.RecallProjectContext(context.Background(), RecallParams{
		Query:  "tests",
		UserID: "u1",
	}, "proj-1")
	if err != nil {
		t.Fatalf("RecallProjectContext: %v", err)
	}

	if st.recallCalls[0].Scope != memory.ScopeProject {
		t.Errorf("scope = %q, want project", st.recallCalls[0].Scope)
	}
	if st.recallCalls[0].K != defaultRecallK {
		t.Errorf("k = %d, want default %d", st.recallCalls[0].K, defaultRecallK)
	}

	r := resp.Results[0]
	if r.MemoryID != "m1" || r.Score != 0.9 || r.SessionID != "s1" {
		t.Errorf("shaped result = %+v", r)
	}
	if r.CreatedAt != "2026-02-01T10:00:00Z" {
		t.Errorf("created_at = %q, want ISO-8601", r.CreatedAt)
	}
}

func TestListDefaultsAndOptionalScope(t *testing.T) {
	st := &stubStore{}
	svc := New(st)

	// Unscoped listing needs no cross-scope opt-in.
	resp, err := svc.List(context.Background(), ListParams{UserID: "u1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if resp.Count != 0 || resp.Memories == nil {
		t.Errorf("response = %+v, want empty list with count", resp)
	}

	call := st.listCalls[0]
	if call.Limit != defaultListLimit || call.SortBy != "created_at" || call.Order != "desc" {
		t.Errorf("defaults not applied: %+v", call)
	}

	// A scoped listing still honors the field matrix.
	_, err = svc.List(context.Background(), ListParams{UserID: "u1", Scope: "project"})
	if !access.IsAccessError(err) {
		t.Errorf("scoped list without project_id error = %v, want access error", err)
	}
}

func TestRecentMemoriesWindowFilter(t *testing.T) {
	now := time.Now()
	st := &stubStore{listResult: []store.Record{
		{ID: "fresh", Text: "today", CreatedAt: now.Add(-30 * time.Minute)},
		{ID: "stale", Text: "last week", CreatedAt: now.Add(-3 * 24 * time.Hour)},
	}}
	svc := New(st)

	resp, err := svc.RecentMemories(context.Background(), "u1", "lastday", "")
	if err != nil {
		t.Fatalf("RecentMemories: %v", err)
	}
	if resp.TimeWindow != "LASTDAY" {
		t.Errorf("time_window = %q, want LASTDAY", resp.TimeWindow)
	}
	if resp.Count != 1 || len(resp.Memories) != 1 || resp.Memories[0].ID != "fresh" {
		t.Errorf("memories = %+v", resp.Memories)
	}
}

func TestRecentMemoriesUnknownWindowFallsBack(t *testing.T) {
	st := &stubStore{}
	svc := New(st)

	resp, err := svc.RecentMemories(context.Background(), "u1", "fortnight", "")
	if err != nil {
		t.Fatalf("RecentMemories: %v", err)
	}
	if resp.TimeWindow != "LASTDAY" {
		t.Errorf("time_window = %q, want LASTDAY", resp.TimeWindow)
	}
	if resp.Count != 0 || resp.Memories == nil {
		t.Errorf("resp = %+v", resp)
	}
}

func TestRecentMemoriesProjectFilterUsesIdentityTag(t *testing.T) {
	st := &stubStore{}
	svc := New(st)

	if _, err := svc.RecentMemories(context.Background(), "u1", "LASTWEEK", "proj-1"); err != nil {
		t.Fatalf("RecentMemories: %v", err)
	}

	call := st.listCalls[0]
	if len(call.Tags) != 1 || call.Tags[0] != "project:proj-1" {
		t.Errorf("tags = %v, want [project:proj-1]", call.Tags)
	}
	if call.UserID != "u1" {
		t.Errorf("user = %q", call.UserID)
	}
}

func TestUpdateRequiresActor(t *testing.T) {
	st := &stubStore{}
	svc := New(st)

	_, err := svc.Update(context.Background(), UpdateParams{MemoryID: "m1"})
	if !access.IsAccessError(err) {
		t.Fatalf("error = %v, want access error", err)
	}
	if len(st.updateCalls) != 0 {
		t.Error("store was touched before identity check")
	}
}

func TestUpdateNotFound(t *testing.T) {
	st := &stubStore{}
	svc := New(st)

	_, err := svc.Update(context.Background(), UpdateParams{MemoryID: "missing", UserID: "u1"})
	if !errors.Is(err, ErrMemoryNotFound) {
		t.Fatalf("error = %v, want ErrMemoryNotFound", err)
	}
}

func TestDeleteMissingRecordIsNotAnError(t *testing.T) {
	st := &stubStore{deleteResult: false}
	svc := New(st)

	resp, err := svc.Delete(context.Background(), "does-not-exist", "u1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if resp.Success {
		t.Error("Success = true, want false for missing record")
	}
}

func TestDeleteRequiresActor(t *testing.T) {
	st := &stubStore{}
	svc := New(st)

	_, err := svc.Delete(context.Background(), "m1", "")
	if !access.IsAccessError(err) {
		t.Fatalf("error = %v, want access error", err)
	}
	if st.deleteCalls != 0 {
		t.Error("store was touched before identity check")
	}
}

func TestStatsPassthrough(t *testing.T) {
	svc := New(&stubStore{})

	stats, err := svc.Stats(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["total"] != 0 {
		t.Errorf("stats = %v", stats)
	}
}
