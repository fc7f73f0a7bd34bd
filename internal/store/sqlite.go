package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/airth/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
	ids  *idSource
	now  func() time.Time
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:   db,
		path: dbPath,
		ids:  newIDSource(),
		now:  time.Now,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		seq                 INTEGER PRIMARY KEY AUTOINCREMENT,
		id                  TEXT NOT NULL UNIQUE,
		type                TEXT NOT NULL,
		ts                  TEXT NOT NULL,
		ts_unix             INTEGER NOT NULL,
		title               TEXT NOT NULL DEFAULT '',
		content             TEXT NOT NULL DEFAULT '',
		emotional_signature TEXT NOT NULL DEFAULT '',
		entities            TEXT NOT NULL DEFAULT '[]',
		priority_level      INTEGER NOT NULL CHECK (priority_level BETWEEN 1 AND 10),
		recall_frequency    TEXT NOT NULL,
		sensory_tags        TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type);
	CREATE INDEX IF NOT EXISTS idx_memories_ts ON memories(ts_unix DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_priority ON memories(priority_level);

	CREATE TABLE IF NOT EXISTS posts (
		id         TEXT PRIMARY KEY,
		topic      TEXT NOT NULL,
		title      TEXT NOT NULL,
		status     TEXT NOT NULL,
		post_id    INTEGER,
		link       TEXT,
		error      TEXT,
		memory_ids TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// postTimeLayout is fixed-width so created_at sorts lexically.
const postTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const memoryColumns = `id, type, ts, title, content, emotional_signature, entities, priority_level, recall_frequency, sensory_tags`

func (s *SQLiteStore) Add(ctx context.Context, r model.Record) (*model.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if r.ID == "" {
		id, err := s.nextID(ctx, tx)
		if err != nil {
			return nil, err
		}
		r.ID = id
	}
	r.Normalize(s.now(), nil)
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE id = ?`, r.ID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
	}

	entities, _ := json.Marshal(r.AssociatedEntities)
	tags, _ := json.Marshal(r.Meta.SensoryTags)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO memories (id, type, ts, ts_unix, title, content, emotional_signature, entities, priority_level, recall_frequency, sensory_tags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Type), r.Timestamp.String(), r.Timestamp.Unix(), r.Title, r.Content,
		r.EmotionalSignature, string(entities), r.Meta.PriorityLevel, string(r.Meta.RecallFrequency), string(tags))
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &r, nil
}

// nextID picks the first free memNNN id.
func (s *SQLiteStore) nextID(ctx context.Context, tx *sql.Tx) (string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM memories`)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	taken := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		taken[id] = true
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return model.NextFreeID(len(taken), taken), nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.Record, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"1 = 1"}
	var args []interface{}
	if p.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(p.Type))
	}
	if p.MinPriority > 0 {
		where = append(where, "priority_level >= ?")
		args = append(args, p.MinPriority)
	}

	query := fmt.Sprintf(`SELECT %s FROM memories WHERE %s ORDER BY ts_unix DESC, seq ASC LIMIT ?`,
		memoryColumns, strings.Join(where, " AND "))
	args = append(args, limit)
	return s.query(ctx, query, args...)
}

// Search filters by type in SQL and matches text in Go, so both backends
// share the same literal, Unicode case-folded substring rule.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]model.Record, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"1 = 1"}
	var args []interface{}
	if p.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(p.Type))
	}

	query := fmt.Sprintf(`SELECT %s FROM memories WHERE %s ORDER BY ts_unix DESC, seq ASC`,
		memoryColumns, strings.Join(where, " AND "))
	rs, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(p.Query)
	var out []model.Record
	for i := range rs {
		if matches(&rs[i], q) {
			out = append(out, rs[i])
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *SQLiteStore) All(ctx context.Context) (model.Collection, error) {
	rs, err := s.query(ctx, `SELECT `+memoryColumns+` FROM memories ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	if rs == nil {
		rs = model.Collection{}
	}
	return rs, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Backend: "sqlite", Path: s.path}
	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}

	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	countStats(st, all)

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&st.Posts); err != nil {
		return st, err
	}
	return st, nil
}

func (s *SQLiteStore) LogPost(ctx context.Context, e PostEntry) (*PostEntry, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	e.ID = s.ids.next(e.CreatedAt)

	var memIDs *string
	if len(e.MemoryIDs) > 0 {
		b, _ := json.Marshal(e.MemoryIDs)
		str := string(b)
		memIDs = &str
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (id, topic, title, status, post_id, link, error, memory_ids, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Topic, e.Title, e.Status, nullInt(e.PostID), nullString(e.Link), nullString(e.Error),
		memIDs, e.CreatedAt.UTC().Format(postTimeLayout))
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return &e, nil
}

func (s *SQLiteStore) Posts(ctx context.Context, limit int) ([]PostEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, title, status, post_id, link, error, memory_ids, created_at
		 FROM posts ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []PostEntry
	for rows.Next() {
		var e PostEntry
		var postID sql.NullInt64
		var link, errText, memIDs sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Topic, &e.Title, &e.Status, &postID, &link, &errText, &memIDs, &createdAt); err != nil {
			return nil, err
		}
		e.PostID = int(postID.Int64)
		e.Link = link.String
		e.Error = errText.String
		if memIDs.Valid {
			if err := json.Unmarshal([]byte(memIDs.String), &e.MemoryIDs); err != nil {
				return nil, fmt.Errorf("post %s memory_ids: %w", e.ID, err)
			}
		}
		if e.CreatedAt, err = time.Parse(postTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("post %s created_at: %w", e.ID, err)
		}
		posts = append(posts, e)
	}
	return posts, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...interface{}) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (model.Record, error) {
	var r model.Record
	var typ, ts, entities, freq, tags string

	err := row.Scan(&r.ID, &typ, &ts, &r.Title, &r.Content, &r.EmotionalSignature,
		&entities, &r.Meta.PriorityLevel, &freq, &tags)
	if err != nil {
		return r, err
	}

	r.Type = model.Type(typ)
	r.Meta.RecallFrequency = model.RecallFrequency(freq)
	if r.Timestamp, err = model.ParseTimestamp(ts); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(entities), &r.AssociatedEntities); err != nil {
		return r, fmt.Errorf("decode entities for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &r.Meta.SensoryTags); err != nil {
		return r, fmt.Errorf("decode sensory tags for %s: %w", r.ID, err)
	}
	return r, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
