// Package bleve implements db.Store on embedded bleve indexes for local runs and tests.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/schemalabz/opencouncil-sub005/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const kvIndexName = "_kv"

// Config holds the on-disk location of the indexes. An empty Dir keeps everything in memory.
type Config struct {
	Dir string
}

// Store implements db.Store on top of bleve. Each FT-style index is one bleve index;
// the key-value surface lives in the internal storage of a dedicated index.
type Store struct {
	dir string

	mu      sync.RWMutex
	indexes map[string]bleve.Index

	kvMu sync.Mutex
	kv   bleve.Index

	now func() time.Time
}

// NewStore opens (or creates) the key-value index and prepares lazy index loading.
func NewStore(cfg Config) (*Store, error) {
	s := &Store{
		dir:     cfg.Dir,
		indexes: make(map[string]bleve.Index),
		now:     time.Now,
	}

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
	}

	kv, err := s.openOrCreate(kvIndexName, bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("open kv index: %w", err)
	}
	s.kv = kv
	return s, nil
}

// Ping reports whether the key-value index is usable.
func (s *Store) Ping(_ context.Context) error {
	if _, err := s.kv.DocCount(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// WaitForReady returns immediately: embedded indexes are ready once opened.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Close closes every open index.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, idx := range s.indexes {
		_ = idx.Close()
		delete(s.indexes, name)
	}
	if s.kv != nil {
		_ = s.kv.Close()
	}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".bleve")
}

func (s *Store) openOrCreate(name string, m mapping.IndexMapping) (bleve.Index, error) {
	if s.dir == "" {
		return bleve.NewMemOnly(m)
	}
	idx, err := bleve.Open(s.path(name))
	if err == nil {
		return idx, nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, err
	}
	return bleve.New(s.path(name), m)
}

// index returns an open index, loading it from disk on first use.
func (s *Store) index(name string) (bleve.Index, error) {
	s.mu.RLock()
	idx, ok := s.indexes[name]
	s.mu.RUnlock()
	if ok {
		return idx, nil
	}
	if s.dir == "" {
		return nil, db.ErrIndexNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.indexes[name]; ok {
		return idx, nil
	}
	idx, err := bleve.Open(s.path(name))
	if err != nil {
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	s.indexes[name] = idx
	return idx, nil
}

// IndexDocument adds or replaces a document. Ingestion tooling and tests write through it.
func (s *Store) IndexDocument(_ context.Context, index, id string, doc map[string]any) error {
	idx, err := s.index(index)
	if err != nil {
		return err
	}
	if err := idx.Index(id, doc); err != nil {
		return &db.Error{Op: "INDEX", Err: err}
	}
	return nil
}
