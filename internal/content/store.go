// Package content resolves song ids to lyric and chord content.
//
// Only ids present in the store's index are content-bearing. Every other id
// resolves to ErrNotFound, which is a normal outcome rather than a failure.
package content

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"golang.org/x/sync/singleflight"

	"github.com/jamoveo/backend/internal/models"
)

var (
	ErrNotFound  = errors.New("content not found")
	ErrMalformed = errors.New("malformed content")
)

//go:embed songs/*.json
var embedded embed.FS

// Resolver looks up content by song id. Implementations must be safe for concurrent use.
type Resolver interface {
	Resolve(ctx context.Context, id string) (models.Content, error)
}

// Embedded returns the bundled song files, rooted so that file names have no directory prefix.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "songs")
	if err != nil {
		panic(fmt.Sprintf("content: embedded songs missing: %v", err))
	}
	return sub
}

// FSStore reads JSON content files from a filesystem. The id → file index is
// fixed at construction.
type FSStore struct {
	fsys  fs.FS
	index map[string]string
	sf    singleflight.Group
}

// NewFSStore creates a store over fsys. index maps song ids to file names in fsys.
func NewFSStore(fsys fs.FS, index map[string]string) *FSStore {
	idx := make(map[string]string, len(index))
	for id, file := range index {
		idx[id] = file
	}
	return &FSStore{fsys: fsys, index: idx}
}

// Has reports whether id is content-bearing.
func (s *FSStore) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Resolve returns a fresh copy of the content for id.
func (s *FSStore) Resolve(ctx context.Context, id string) (models.Content, error) {
	file, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, _ := s.sf.Do(id, func() (interface{}, error) {
		return s.load(file)
	})
	if err != nil {
		return nil, err
	}
	// Concurrent callers share v.
	return v.(models.Content).Clone(), nil
}

func (s *FSStore) load(file string) (models.Content, error) {
	raw, err := fs.ReadFile(s.fsys, file)
	if err != nil {
		return nil, fmt.Errorf("read content file %s: %w", file, err)
	}

	var c models.Content
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, file, err)
	}
	if len(c) == 0 {
		return nil, fmt.Errorf("%w: %s has no lines", ErrMalformed, file)
	}
	return c, nil
}
