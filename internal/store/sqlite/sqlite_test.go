package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hippocampai/memgate/internal/memory"
	"github.com/hippocampai/memgate/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "memories.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRememberEncodesIdentityTags(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.Remember(context.Background(), store.RememberParams{
		Text:      "Deploy uses blue/green",
		UserID:    "u1",
		Scope:     memory.ScopeProject,
		ProjectID: "proj-1",
		Tags:      []string{"deploy"},
	})
	if err != nil {
		t.Fatalf("Remember: %v", err)
	}

	want := []string{"deploy", "scope:project", "project:proj-1"}
	if len(rec.Tags) != len(want) {
		t.Fatalf("tags = %v, want %v", rec.Tags, want)
	}
	for i, tag := range want {
		if rec.Tags[i] != tag {
			t.Errorf("tags[%d] = %q, want %q", i, rec.Tags[i], tag)
		}
	}
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Errorf("record missing id or timestamp: %+v", rec)
	}
}

func TestRecallScopeIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed := []store.RememberParams{
		{Text: "alpha convention", UserID: "u1", Scope: memory.ScopeProject, ProjectID: "alpha"},
		{Text: "beta convention", UserID: "u1", Scope: memory.ScopeProject, ProjectID: "beta"},
		{Text: "personal convention", UserID: "u1", Scope: memory.ScopeUserPreference},
	}
	for _, p := range seed {
		if _, err := s.Remember(ctx, p); err != nil {
			t.Fatalf("Remember: %v", err)
		}
	}

	hits, err := s.Recall(ctx, store.RecallParams{
		Query:     "convention",
		UserID:    "u1",
		Scope:     memory.ScopeProject,
		ProjectID: "alpha",
		K:         10,
	})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "alpha convention" {
		t.Errorf("hits = %+v, want only the alpha memory", hits)
	}

	// Cross-scope recall sees everything for the user.
	hits, err = s.Recall(ctx, store.RecallParams{Query: "convention", UserID: "u1", K: 10})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(hits) != 3 {
		t.Errorf("cross-scope hits = %d, want 3", len(hits))
	}
}

func TestRecallUserIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Remember(ctx, store.RememberParams{Text: "mine", UserID: "u1", Scope: memory.ScopeUserPreference})
	s.Remember(ctx, store.RememberParams{Text: "theirs", UserID: "u2", Scope: memory.ScopeUserPreference})

	hits, err := s.Recall(ctx, store.RecallParams{Query: "mine theirs", UserID: "u1", K: 10})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "mine" {
		t.Errorf("hits = %+v, want only u1's memory", hits)
	}
}

func TestRecallTagFilterIsConjunctive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Remember(ctx, store.RememberParams{Text: "both tags", UserID: "u1", Scope: memory.ScopeUserPreference, Tags: []string{"go", "testing"}})
	s.Remember(ctx, store.RememberParams{Text: "one tag", UserID: "u1", Scope: memory.ScopeUserPreference, Tags: []string{"go"}})

	hits, err := s.Recall(ctx, store.RecallParams{
		Query:  "tags",
		UserID: "u1",
		Tags:   []string{"go", "testing"},
		K:      10,
	})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "both tags" {
		t.Errorf("hits = %+v, want only the memory carrying both tags", hits)
	}
}

func TestRecallRanksByTermOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Remember(ctx, store.RememberParams{Text: "sqlite pragma tuning", UserID: "u1", Scope: memory.ScopeUserPreference})
	s.Remember(ctx, store.RememberParams{Text: "pragma only", UserID: "u1", Scope: memory.ScopeUserPreference})
	s.Remember(ctx, store.RememberParams{Text: "unrelated", UserID: "u1", Scope: memory.ScopeUserPreference})

	hits, err := s.Recall(ctx, store.RecallParams{Query: "sqlite pragma", UserID: "u1", K: 10})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2 (unrelated text excluded)", len(hits))
	}
	if hits[0].Text != "sqlite pragma tuning" || hits[0].Score <= hits[1].Score {
		t.Errorf("ranking wrong: %+v", hits)
	}
}

func TestUpdatePartialFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Remember(ctx, store.RememberParams{
		Text:   "original",
		UserID: "u1",
		Scope:  memory.ScopeUserPreference,
		Tags:   []string{"keep"},
	})
	if err != nil {
		t.Fatalf("Remember: %v", err)
	}

	newText := "revised"
	updated, err := s.Update(ctx, store.UpdateParams{
		MemoryID: rec.ID,
		UserID:   "u1",
		Text:     &newText,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Text != "revised" {
		t.Errorf("text = %q, want revised", updated.Text)
	}
	if len(updated.Tags) != 2 || updated.Tags[0] != "keep" {
		t.Errorf("tags changed by a text-only update: %v", updated.Tags)
	}
}

func TestUpdateMissingMemory(t *testing.T) {
	s := newTestStore(t)

	text := "x"
	_, err := s.Update(context.Background(), store.UpdateParams{
		MemoryID: "nope",
		UserID:   "u1",
		Text:     &text,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateEnforcesOwnership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, _ := s.Remember(ctx, store.RememberParams{Text: "secret", UserID: "u1", Scope: memory.ScopeUserPreference})

	text := "stolen"
	_, err := s.Update(ctx, store.UpdateParams{MemoryID: rec.ID, UserID: "u2", Text: &text})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound for another user's memory", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, _ := s.Remember(ctx, store.RememberParams{Text: "to delete", UserID: "u1", Scope: memory.ScopeUserPreference})

	ok, err := s.Delete(ctx, rec.ID, "u1")
	if err != nil || !ok {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", ok, err)
	}

	ok, err = s.Delete(ctx, rec.ID, "u1")
	if err != nil || ok {
		t.Fatalf("second Delete = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestListSortAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third"} {
		if _, err := s.Remember(ctx, store.RememberParams{Text: text, UserID: "u1", Scope: memory.ScopeUserPreference}); err != nil {
			t.Fatalf("Remember: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	records, err := s.List(ctx, store.ListParams{
		UserID: "u1",
		SortBy: "created_at",
		Order:  "desc",
		Limit:  2,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if !records[0].CreatedAt.After(records[1].CreatedAt) && !records[0].CreatedAt.Equal(records[1].CreatedAt) {
		t.Errorf("order wrong: %v then %v", records[0].CreatedAt, records[1].CreatedAt)
	}
}

func TestExpiredMemoriesAreInvisible(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, user_id, text, kind, scope, created_at, expires_at)
		 VALUES ('expired-1', 'u1', 'stale', 'context', 'user_preference', ?, ?)`,
		past, past)
	if err != nil {
		t.Fatalf("seed expired row: %v", err)
	}

	records, err := s.List(ctx, store.ListParams{UserID: "u1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expired memory still visible: %+v", records)
	}

	stats, err := s.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["total_memories"] != 0 {
		t.Errorf("stats count expired memories: %v", stats)
	}
}

func TestStatsByScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Remember(ctx, store.RememberParams{Text: "a", UserID: "u1", Scope: memory.ScopeProject, ProjectID: "p1"})
	s.Remember(ctx, store.RememberParams{Text: "b", UserID: "u1", Scope: memory.ScopeProject, ProjectID: "p1"})
	s.Remember(ctx, store.RememberParams{Text: "c", UserID: "u1", Scope: memory.ScopeUserPreference})

	stats, err := s.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["total_memories"] != 3 {
		t.Errorf("total = %v, want 3", stats["total_memories"])
	}
	byScope := stats["by_scope"].(map[string]int)
	if byScope["project"] != 2 || byScope["user_preference"] != 1 {
		t.Errorf("by_scope = %v", byScope)
	}
}
