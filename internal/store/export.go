package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcliao/airth/internal/model"
)

// ImportResult reports what an import did.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped,omitempty"`
}

// Import appends every record of c to dst. The collection is validated as a
// whole first; records whose id already exists in dst are skipped.
func Import(ctx context.Context, dst Store, c model.Collection) (*ImportResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	res := &ImportResult{}
	for _, r := range c {
		_, err := dst.Add(ctx, r)
		if errors.Is(err, ErrDuplicateID) {
			res.Skipped = append(res.Skipped, r.ID)
			continue
		}
		if err != nil {
			return res, fmt.Errorf("import %s: %w", r.ID, err)
		}
		res.Imported++
	}
	return res, nil
}

// Open returns the store for the named backend ("json" or "sqlite").
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "json":
		return NewFileStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (valid: json, sqlite)", backend)
	}
}
