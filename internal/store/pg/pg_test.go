package pg

import (
	"strings"
	"testing"
)

func TestFilterBuildPlaceholders(t *testing.T) {
	imp := 0.5
	f := filter{
		userID:        "u1",
		kind:          "context",
		scope:         "project",
		projectID:     "p1",
		minImportance: &imp,
		tags:          []string{"go", "testing"},
	}

	where, args := f.build()

	if len(args) != 6 {
		t.Fatalf("args = %d, want 6", len(args))
	}
	joined := strings.Join(where, " AND ")
	for _, clause := range []string{
		"user_id = $1",
		"kind = $2",
		"project_id = $3",
		"scope = $4",
		"importance >= $5",
		"tags @> $6::jsonb",
	} {
		if !strings.Contains(joined, clause) {
			t.Errorf("missing clause %q in %q", clause, joined)
		}
	}
	if args[5] != `["go","testing"]` {
		t.Errorf("tags arg = %v, want jsonb array", args[5])
	}
}

func TestFilterBuildMinimal(t *testing.T) {
	where, args := filter{userID: "u1"}.build()
	if len(where) != 2 || len(args) != 1 {
		t.Errorf("where = %v, args = %v", where, args)
	}
}
