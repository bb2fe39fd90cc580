// Package memory provides an in-memory KV substrate for tests and tooling.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/louisbranch/broadside/internal/storage"
)

// Store is a map-backed KV implementation. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns the value stored under key, or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[string(key)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Put stores value under key.
func (s *Store) Put(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[string(key)] = append([]byte(nil), value...)
	return nil
}

// Apply stores all entries under one lock so readers never observe a
// partial batch.
func (s *Store) Apply(ctx context.Context, entries []storage.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		s.data[string(entry.Key)] = append([]byte(nil), entry.Value...)
	}
	return nil
}

// Scan returns all entries under prefix in ascending key order.
func (s *Store) Scan(ctx context.Context, prefix []byte) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []storage.Entry
	for key, value := range s.data {
		if bytes.HasPrefix([]byte(key), prefix) {
			entries = append(entries, storage.Entry{
				Key:   []byte(key),
				Value: append([]byte(nil), value...),
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].Key, entries[j].Key) < 0
	})
	return entries, nil
}
