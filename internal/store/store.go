// Package store persists the append-only memory collection and the post log.
package store

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/airth/internal/model"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("memory not found")
	// ErrDuplicateID is returned when adding a record whose id is taken.
	ErrDuplicateID = errors.New("duplicate memory id")
)

// ListParams holds parameters for listing memories.
type ListParams struct {
	Type        model.Type
	MinPriority int
	Limit       int
}

// SearchParams holds parameters for a substring search.
type SearchParams struct {
	Query string
	Type  model.Type
	Limit int
}

// Stats summarizes a collection.
type Stats struct {
	Backend     string         `json:"backend"`
	Path        string         `json:"path"`
	SizeBytes   int64          `json:"size_bytes"`
	Total       int            `json:"total"`
	ByType      map[string]int `json:"by_type"`
	ByFrequency map[string]int `json:"by_frequency"`
	Posts       int            `json:"posts"`
}

// Store defines the memory storage interface. Records are never updated or removed.
type Store interface {
	// Add normalizes, validates and appends a record. Returns the stored record.
	Add(ctx context.Context, r model.Record) (*model.Record, error)

	// Get retrieves a record by id.
	Get(ctx context.Context, id string) (*model.Record, error)

	// List returns records matching the filters, newest first.
	List(ctx context.Context, p ListParams) ([]model.Record, error)

	// Search returns records whose text fields contain the query.
	Search(ctx context.Context, p SearchParams) ([]model.Record, error)

	// All returns the full collection in insertion order.
	All(ctx context.Context) (model.Collection, error)

	// Stats returns collection statistics.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the store.
	Close() error
}

// PostEntry records one attempt to publish a post.
type PostEntry struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	PostID    int       `json:"post_id,omitempty"`
	Link      string    `json:"link,omitempty"`
	Error     string    `json:"error,omitempty"`
	MemoryIDs []string  `json:"memory_ids,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PostLog is implemented by stores that keep a history of publishing attempts.
type PostLog interface {
	LogPost(ctx context.Context, e PostEntry) (*PostEntry, error)
	Posts(ctx context.Context, limit int) ([]PostEntry, error)
}

// idSource produces monotonic ULIDs for post log entries.
type idSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newIDSource() *idSource {
	return &idSource{entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)}
}

func (s *idSource) next(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

// matches reports whether r contains the lower-cased query in any text field.
func matches(r *model.Record, q string) bool {
	if strings.Contains(strings.ToLower(r.Title), q) ||
		strings.Contains(strings.ToLower(r.Content), q) ||
		strings.Contains(strings.ToLower(r.EmotionalSignature), q) {
		return true
	}
	for _, e := range r.AssociatedEntities {
		if strings.Contains(strings.ToLower(e), q) {
			return true
		}
	}
	return false
}

func countStats(st *Stats, c model.Collection) {
	st.Total = len(c)
	st.ByType = map[string]int{}
	st.ByFrequency = map[string]int{}
	for _, r := range c {
		st.ByType[string(r.Type)]++
		st.ByFrequency[string(r.Meta.RecallFrequency)]++
	}
}
