package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rcliao/airth/internal/model"
)

// envelope is the wrapped layout written by the earlier tooling.
type envelope struct {
	Version     string           `json:"version"`
	LastUpdated string           `json:"last_updated"`
	Memories    model.Collection `json:"memories"`
}

// FileStore implements Store over a single JSON file. The post log lives in
// posts.jsonl next to it.
type FileStore struct {
	mu       sync.Mutex
	path     string
	postPath string
	records  model.Collection
	wrapped  bool
	version  string
	ids      *idSource
	now      func() time.Time
}

// NewFileStore loads the collection at path. A missing file is an empty collection.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	s := &FileStore{
		path:     path,
		postPath: filepath.Join(filepath.Dir(path), "posts.jsonl"),
		records:  model.Collection{},
		ids:      newIDSource(),
		now:      time.Now,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := s.decode(data); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

// DecodeCollection parses either a bare JSON array of records or the
// {"memories": [...]} envelope, and validates the result.
func DecodeCollection(data []byte) (model.Collection, error) {
	var s FileStore
	if err := s.decode(data); err != nil {
		return nil, err
	}
	return s.records, nil
}

func (s *FileStore) decode(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		s.records = model.Collection{}
		return nil
	}

	var c model.Collection
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
		c = env.Memories
		s.wrapped = true
		s.version = env.Version
	default:
		return fmt.Errorf("parse json: expected array or object")
	}

	if c == nil {
		c = model.Collection{}
	}
	if err := c.Validate(); err != nil {
		return err
	}
	s.records = c
	return nil
}

// save writes the collection atomically. Callers hold s.mu.
func (s *FileStore) save() error {
	var v any = s.records
	if s.wrapped {
		version := s.version
		if version == "" {
			version = "1.0.0"
		}
		v = envelope{
			Version:     version,
			LastUpdated: s.now().UTC().Format(time.RFC3339),
			Memories:    s.records,
		}
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".memories-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) Add(ctx context.Context, r model.Record) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.Normalize(s.now(), s.records.NextID)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	for _, existing := range s.records {
		if existing.ID == r.ID {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
	}

	s.records = append(s.records, r)
	if err := s.save(); err != nil {
		s.records = s.records[:len(s.records)-1]
		return nil, fmt.Errorf("save: %w", err)
	}
	return &r, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *FileStore) List(ctx context.Context, p ListParams) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	var out []model.Record
	for _, r := range s.records {
		if p.Type != "" && r.Type != p.Type {
			continue
		}
		if r.Meta.PriorityLevel < p.MinPriority {
			continue
		}
		out = append(out, r)
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *FileStore) Search(ctx context.Context, p SearchParams) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(p.Query)

	var out []model.Record
	for i := range s.records {
		r := &s.records[i]
		if p.Type != "" && r.Type != p.Type {
			continue
		}
		if matches(r, q) {
			out = append(out, *r)
		}
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *FileStore) All(ctx context.Context) (model.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(model.Collection, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *FileStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &Stats{Backend: "json", Path: s.path}
	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}
	countStats(st, s.records)

	posts, err := s.readPosts()
	if err != nil {
		return st, err
	}
	st.Posts = len(posts)
	return st, nil
}

func (s *FileStore) LogPost(ctx context.Context, e PostEntry) (*PostEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	e.ID = s.ids.next(e.CreatedAt)

	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(s.postPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open post log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return nil, fmt.Errorf("write post log: %w", err)
	}
	return &e, nil
}

func (s *FileStore) Posts(ctx context.Context, limit int) ([]PostEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.readPosts()
	if err != nil {
		return nil, err
	}
	// newest first
	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (s *FileStore) readPosts() ([]PostEntry, error) {
	f, err := os.Open(s.postPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var posts []PostEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e PostEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parse post log: %w", err)
		}
		posts = append(posts, e)
	}
	return posts, sc.Err()
}

func (s *FileStore) Close() error {
	return nil
}

func sortNewestFirst(rs []model.Record) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Timestamp.After(rs[j].Timestamp.Time)
	})
}
