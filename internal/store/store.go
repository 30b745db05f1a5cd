// Package store holds the canonical order records, keyed by order_id.
// Values are whole Order documents; writes replace the stored record
// wholesale, which is what keeps incremental loads idempotent.
package store

import (
	"fmt"
	"sync"

	"oap/internal/model"
)

// Store abstracts the canonical store backend.
type Store interface {
	// Put stores the order under key, replacing any existing record in
	// full. existed reports whether a record was already present.
	Put(key string, o model.Order) (existed bool, err error)
	Get(key string) (model.Order, bool)
	Delete(key string) error
	Range(fn func(key string, o model.Order) error) error
	// LoadAll replaces the store contents with the provided snapshot.
	LoadAll(all map[string]model.Order)
}

// InMemoryStore is a simple thread-safe map store.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]model.Order
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]model.Order)}
}

func (s *InMemoryStore) Put(key string, o model.Order) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.data[key]
	s.data[key] = o
	return existed, nil
}

func (s *InMemoryStore) Get(key string) (model.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.data[key]
	return o, ok
}

func (s *InMemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *InMemoryStore) Range(fn func(key string, o model.Order) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.data {
		if err := fn(k, v); err != nil {
			return fmt.Errorf("range callback failed: %w", err)
		}
	}
	return nil
}

func (s *InMemoryStore) LoadAll(all map[string]model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]model.Order, len(all))
	for k, v := range all {
		s.data[k] = v
	}
}
