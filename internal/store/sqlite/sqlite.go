// Package sqlite is the embedded memory backend. It keeps every memory
// in a single SQLite file and declares metadata support, so scope
// identity is persisted both as synthetic tags and as metadata.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/hippocampai/memgate/internal/store"
)

// Store implements store.Store over a SQLite file.
type Store struct {
	db *sql.DB
}

// New opens or creates the database at the given path and bootstraps
// the schema.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// newID uses the locked default entropy so concurrent tool calls can
// mint IDs without a shared unguarded source.
func newID() string {
	return ulid.Make().String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		text        TEXT NOT NULL,
		kind        TEXT NOT NULL DEFAULT 'context',
		importance  REAL,
		tags        TEXT,
		session_id  TEXT NOT NULL DEFAULT '',
		agent_id    TEXT NOT NULL DEFAULT '',
		project_id  TEXT NOT NULL DEFAULT '',
		scope       TEXT NOT NULL DEFAULT '',
		meta        TEXT,
		facts       TEXT,
		created_at  TEXT NOT NULL,
		expires_at  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id);
	CREATE INDEX IF NOT EXISTS idx_memories_user_scope ON memories(user_id, scope);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_expires ON memories(expires_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Remember(ctx context.Context, p store.RememberParams) (*store.Record, error) {
	now := time.Now().UTC()
	id := newID()

	kind := p.Kind
	if kind == "" {
		kind = "context"
	}

	tags := store.EncodeTags(p.Scope, p.ProjectID, p.AgentID, p.Tags)
	meta := store.EncodeMetadata(p.Scope, p.ProjectID, p.AgentID, p.Metadata)

	var tagsJSON, metaJSON *string
	if len(tags) > 0 {
		b, _ := json.Marshal(tags)
		v := string(b)
		tagsJSON = &v
	}
	if len(meta) > 0 {
		b, _ := json.Marshal(meta)
		v := string(b)
		metaJSON = &v
	}

	var expiresAt *string
	if p.TTLDays > 0 {
		exp := now.Add(time.Duration(p.TTLDays) * 24 * time.Hour).Format(time.RFC3339)
		expiresAt = &exp
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, user_id, text, kind, importance, tags, session_id, agent_id, project_id, scope, meta, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.UserID, p.Text, kind, p.Importance, tagsJSON,
		p.SessionID, p.AgentID, p.ProjectID, string(p.Scope), metaJSON,
		now.Format(time.RFC3339), expiresAt)
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	return &store.Record{
		ID:         id,
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
	records, err := s.query(ctx, queryFilter{
		userID:        p.UserID,
		kind:          p.Kind,
		sessionID:     p.SessionID,
		agentID:       p.AgentID,
		projectID:     p.ProjectID,
		scope:         string(p.Scope),
		tags:          p.Tags,
		minImportance: p.MinImportance,
	})
	if err != nil {
		return nil, err
	}

	terms := queryTerms(p.Query)
	hits := make([]store.SearchHit, 0, len(records))
	for _, r := range records {
		score := scoreText(r.Text, terms)
		if len(terms) > 0 && score == 0 {
			continue
		}
		hits = append(hits, store.SearchHit{Record: r, Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	k := p.K
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *Store) Update(ctx context.Context, p store.UpdateParams) (*store.Record, error) {
	rec, err := s.get(ctx, p.MemoryID, p.UserID)
	if err != nil {
		return nil, err
	}

	if p.Text != nil {
		rec.Text = *p.Text
	}
	if p.Importance != nil {
		rec.Importance = p.Importance
	}
	if p.Tags != nil {
		rec.Tags = p.Tags
	}

	var tagsJSON *string
	if len(rec.Tags) > 0 {
		b, _ := json.Marshal(rec.Tags)
		v := string(b)
		tagsJSON = &v
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE memories SET text = ?, importance = ?, tags = ? WHERE id = ? AND user_id = ?`,
		rec.Text, rec.Importance, tagsJSON, p.MemoryID, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("update memory: %w", err)
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, memoryID, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM memories WHERE id = ? AND user_id = ?`, memoryID, userID)
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
	records, err := s.query(ctx, queryFilter{
		userID:    p.UserID,
		kind:      p.Kind,
		sessionID: p.SessionID,
		agentID:   p.AgentID,
		projectID: p.ProjectID,
		scope:     string(p.Scope),
		tags:      p.Tags,
		sortBy:    p.SortBy,
		order:     p.Order,
	})
	if err != nil {
		return nil, err
	}
	if p.Limit > 0 && len(records) > p.Limit {
		records = records[:p.Limit]
	}
	return records, nil
}

func (s *Store) Stats(ctx context.Context, userID string) (map[string]any, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE user_id = ? AND (expires_at IS NULL OR expires_at > ?)`,
		userID, nowRFC3339()).Scan(&total); err != nil {
		return nil, fmt.Errorf("count memories: %w", err)
	}

	byScope := map[string]int{}
	rows, err := s.db.QueryContext(ctx,
		`SELECT scope, COUNT(*) FROM memories
		 WHERE user_id = ? AND (expires_at IS NULL OR expires_at > ?)
		 GROUP BY scope`, userID, nowRFC3339())
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
	return store.Capabilities{Metadata: true}
}

func (s *Store) Close() error {
	return s.db.Close()
}

type queryFilter struct {
	userID        string
	kind          string
	sessionID     string
	agentID       string
	projectID     string
	scope         string
	tags          []string
	minImportance *float64
	sortBy        string
	order         string
}

func (s *Store) query(ctx context.Context, f queryFilter) ([]store.Record, error) {
	where := []string{"user_id = ?", "(expires_at IS NULL OR expires_at > ?)"}
	args := []any{f.userID, nowRFC3339()}

	if f.kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.kind)
	}
	if f.sessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.sessionID)
	}
	if f.agentID != "" {
		where = append(where, "agent_id = ?")
		args = append(args, f.agentID)
	}
	if f.projectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, f.projectID)
	}
	if f.scope != "" {
		where = append(where, "scope = ?")
		args = append(args, f.scope)
	}
	if f.minImportance != nil {
		where = append(where, "importance >= ?")
		args = append(args, *f.minImportance)
	}

	orderClause := "created_at"
	if f.sortBy == "importance" {
		orderClause = "importance"
	}
	dir := "DESC"
	if strings.EqualFold(f.order, "asc") {
		dir = "ASC"
	}

	query := fmt.Sprintf(
		`SELECT id, text, kind, importance, tags, session_id, agent_id, project_id, created_at
		 FROM memories WHERE %s ORDER BY %s %s`,
		strings.Join(where, " AND "), orderClause, dir)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if !hasAllTags(rec.Tags, f.tags) {
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) get(ctx context.Context, memoryID, userID string) (*store.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, text, kind, importance, tags, session_id, agent_id, project_id, created_at
		 FROM memories WHERE id = ? AND user_id = ?`, memoryID, userID)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	return &rec, nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (store.Record, error) {
	var rec store.Record
	var importance sql.NullFloat64
	var tagsJSON sql.NullString
	var createdAt string

	err := row.Scan(&rec.ID, &rec.Text, &rec.Kind, &importance, &tagsJSON,
		&rec.SessionID, &rec.AgentID, &rec.ProjectID, &createdAt)
	if err != nil {
		return rec, err
	}

	if importance.Valid {
		rec.Importance = &importance.Float64
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &rec.Tags)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return rec, nil
}

// hasAllTags reports whether record tags contain every wanted tag.
func hasAllTags(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

func queryTerms(q string) []string {
	fields := strings.Fields(strings.ToLower(q))
	terms := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			terms = append(terms, f)
		}
	}
	return terms
}

// scoreText is the keyword relevance score: the fraction of query
// terms present in the text. An empty query matches everything at a
// neutral score.
func scoreText(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 1
	}
	lower := strings.ToLower(text)
	matched := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
