// Package fsstore implements a filesystem-backed preseed store. It
// implements the interface in package store.
//
// Documents are stored in the file system using the `jsondb` package, one
// file per identifier. Access to a given directory must be exclusive to one
// `fsStore` object at a time; a single `fsStore` can be safely accessed from
// multiple goroutines.
package fsstore

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/osbuild/preseed-composer/internal/jsondb"
	"github.com/osbuild/preseed-composer/internal/store"
)

type fsStore struct {
	// Protects db. Insert holds it across the existence check and the
	// write so two inserts of the same identifier cannot both succeed.
	mu sync.RWMutex

	db *jsondb.JSONDatabase
}

// New creates a store for `dir`. The directory must exist.
func New(dir string) (*fsStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("error accessing store directory: %v", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store path %s is not a directory", dir)
	}

	return &fsStore{
		db: jsondb.New(dir, 0600),
	}, nil
}

func (s *fsStore) Exists(ctx context.Context, hashID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.Exists(hashID)
}

func (s *fsStore) Insert(ctx context.Context, p *store.Preseed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.db.Exists(p.HashID)
	if err != nil {
		return err
	}
	if exists {
		return store.ErrIdentifierTaken
	}

	return s.db.Write(p.HashID, p)
}

func (s *fsStore) Get(ctx context.Context, hashID string) (*store.Preseed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p store.Preseed
	exists, err := s.db.Read(hashID, &p)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}
	return &p, nil
}
