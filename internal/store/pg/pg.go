// Package pg is the managed memory backend. It stores memories in
// Postgres with full-text ranking for recall and declares both
// metadata and telemetry support.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hippocampai/memgate/internal/store"
)

// Store implements store.Store backed by Postgres.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle. Callers own the handle's
// lifecycle until Close is called on the store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const recordColumns = `id, content, kind, importance, tags, session_id, agent_id, project_id, created_at`

func (s *Store) Remember(ctx context.Context, p store.RememberParams) (*store.Record, error) {
	id := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()

	kind := p.Kind
	if kind == "" {
		kind = "context"
	}

	tags := store.EncodeTags(p.Scope, p.ProjectID, p.AgentID, p.Tags)
	meta := store.EncodeMetadata(p.Scope, p.ProjectID, p.AgentID, p.Metadata)

	tagsJSON, _ := json.Marshal(tags)
	metaJSON, _ := json.Marshal(meta)

	var expiresAt *time.Time
	if p.TTLDays > 0 {
		exp := now.Add(time.Duration(p.TTLDays) * 24 * time.Hour)
		expiresAt = &exp
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, user_id, content, kind, importance, tags, session_id, agent_id, project_id, scope, meta, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id, p.UserID, p.Text, kind, p.Importance, string(tagsJSON),
		p.SessionID, p.AgentID, p.ProjectID, string(p.Scope), string(metaJSON),
		now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	return &store.Record{
		ID:         id.String(),
		Text:       p.Text,
		Kind:       kind,
		Importance: p.Importance,
		Tags:       tags,
		SessionID:  p.SessionID,
		AgentID:    p.AgentID,
		ProjectID:  p.ProjectID,
		CreatedAt:  now,
	}, nil
}

func (s *Store) Recall(ctx context.Context, p store.RecallParams) ([]store.SearchHit, error) {
	f := filter{
		userID:        p.UserID,
		kind:          p.Kind,
		sessionID:     p.SessionID,
		agentID:       p.AgentID,
		projectID:     p.ProjectID,
		scope:         string(p.Scope),
		tags:          p.Tags,
		minImportance: p.MinImportance,
	}
	where, args := f.build()

	k := p.K
	if k <= 0 {
		k = 5
	}

	var query string
	if strings.TrimSpace(p.Query) != "" {
		args = append(args, p.Query)
		rank := fmt.Sprintf("ts_rank(to_tsvector('english', content), plainto_tsquery('english', $%d))", len(args))
		where = append(where, fmt.Sprintf("to_tsvector('english', content) @@ plainto_tsquery('english', $%d)", len(args)))
		args = append(args, k)
		query = fmt.Sprintf(
			`SELECT %s, %s AS score FROM memories WHERE %s ORDER BY score DESC LIMIT $%d`,
			recordColumns, rank, strings.Join(where, " AND "), len(args))
	} else {
		args = append(args, k)
		query = fmt.Sprintf(
			`SELECT %s, 1.0 AS score FROM memories WHERE %s ORDER BY created_at DESC LIMIT $%d`,
			recordColumns, strings.Join(where, " AND "), len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recall memories: %w", err)
	}
	defer rows.Close()

	var hits []store.SearchHit
	for rows.Next() {
		var hit store.SearchHit
		if err := scanRecord(rows, &hit.Record, &hit.Score); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (s *Store) Update(ctx context.Context, p store.UpdateParams) (*store.Record, error) {
	set := []string{}
	args := []any{}
	n := 0
	next := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	if p.Text != nil {
		set = append(set, "content = "+next(*p.Text))
	}
	if p.Importance != nil {
		set = append(set, "importance = "+next(*p.Importance))
	}
	if p.Tags != nil {
		b, _ := json.Marshal(p.Tags)
		set = append(set, "tags = "+next(string(b))+"::jsonb")
	}
	if len(set) == 0 {
		return s.get(ctx, p.MemoryID, p.UserID)
	}

	query := fmt.Sprintf(
		`UPDATE memories SET %s WHERE id = %s AND user_id = %s RETURNING %s`,
		strings.Join(set, ", "), next(p.MemoryID), next(p.UserID), recordColumns)

	var rec store.Record
	row := s.db.QueryRowContext(ctx, query, args...)
	if err := scanRecord(row, &rec, nil); err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("update memory: %w", err)
	}
	return &rec, nil
}

func (s *Store) Delete(ctx context.Context, memoryID, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM memories WHERE id = $1 AND user_id = $2`, memoryID, userID)
	if err != nil {
		return false, fmt.Errorf("delete memory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) List(ctx context.Context, p store.ListParams) ([]store.Record, error) {
	f := filter{
		userID:    p.UserID,
		kind:      p.Kind,
		sessionID: p.SessionID,
		agentID:   p.AgentID,
		projectID: p.ProjectID,
		scope:     string(p.Scope),
		tags:      p.Tags,
	}
	where, args := f.build()

	orderCol := "created_at"
	if p.SortBy == "importance" {
		orderCol = "importance"
	}
	dir := "DESC"
	if strings.EqualFold(p.Order, "asc") {
		dir = "ASC"
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT %s FROM memories WHERE %s ORDER BY %s %s LIMIT $%d`,
		recordColumns, strings.Join(where, " AND "), orderCol, dir, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var rec store.Record
		if err := scanRecord(rows, &rec, nil); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) Stats(ctx context.Context, userID string) (map[string]any, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > now())`,
		userID).Scan(&total); err != nil {
		return nil, fmt.Errorf("count memories: %w", err)
	}

	byScope := map[string]int{}
	rows, err := s.db.QueryContext(ctx,
		`SELECT scope, COUNT(*) FROM memories
		 WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > now())
		 GROUP BY scope`, userID)
	if err != nil {
		return nil, fmt.Errorf("count by scope: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var scope string
		var n int
		if err := rows.Scan(&scope, &n); err != nil {
			return nil, err
		}
		byScope[scope] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return map[string]any{
		"total_memories": total,
		"by_scope":       byScope,
	}, nil
}

func (s *Store) Capabilities() store.Capabilities {
	return store.Capabilities{Metadata: true, Telemetry: true}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(ctx context.Context, memoryID, userID string) (*store.Record, error) {
	var rec store.Record
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM memories WHERE id = $1 AND user_id = $2`, recordColumns),
		memoryID, userID)
	if err := scanRecord(row, &rec, nil); err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get memory: %w", err)
	}
	return &rec, nil
}

// filter accumulates WHERE predicates with positional placeholders.
type filter struct {
	userID        string
	kind          string
	sessionID     string
	agentID       string
	projectID     string
	scope         string
	tags          []string
	minImportance *float64
}

func (f filter) build() ([]string, []any) {
	where := []string{"user_id = $1", "(expires_at IS NULL OR expires_at > now())"}
	args := []any{f.userID}

	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if f.kind != "" {
		add("kind = $%d", f.kind)
	}
	if f.sessionID != "" {
		add("session_id = $%d", f.sessionID)
	}
	if f.agentID != "" {
		add("agent_id = $%d", f.agentID)
	}
	if f.projectID != "" {
		add("project_id = $%d", f.projectID)
	}
	if f.scope != "" {
		add("scope = $%d", f.scope)
	}
	if f.minImportance != nil {
		add("importance >= $%d", *f.minImportance)
	}
	if len(f.tags) > 0 {
		// jsonb containment gives conjunctive tag matching.
		b, _ := json.Marshal(f.tags)
		add("tags @> $%d::jsonb", string(b))
	}
	return where, args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, rec *store.Record, score *float64) error {
	var importance sql.NullFloat64
	var tagsJSON []byte

	dest := []any{&rec.ID, &rec.Text, &rec.Kind, &importance, &tagsJSON,
		&rec.SessionID, &rec.AgentID, &rec.ProjectID, &rec.CreatedAt}
	if score != nil {
		dest = append(dest, score)
	}
	if err := row.Scan(dest...); err != nil {
		return err
	}

	if importance.Valid {
		rec.Importance = &importance.Float64
	}
	if len(tagsJSON) > 0 {
		json.Unmarshal(tagsJSON, &rec.Tags)
	}
	return nil
}
