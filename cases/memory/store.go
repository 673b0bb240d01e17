// Package memorycases is an in-memory case store for development and tests.
package memorycases

import (
	"context"
	"sync"

	"github.com/juslabs/casegate/cases"
)

// Store maps protocols to process numbers in memory.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

// New creates a store seeded with the given protocol → process number map.
func New(seed map[string]string) *Store {
	data := make(map[string]string, len(seed))
	for k, v := range seed {
		data[k] = v
	}
	return &Store{data: data}
}

// Put registers or replaces a process number for a protocol.
func (s *Store) Put(protocol, number string) {
	s.mu.Lock()
	s.data[protocol] = number
	s.mu.Unlock()
}

// ProcessNumber implements cases.Store.
func (s *Store) ProcessNumber(_ context.Context, protocol string) (string, error) {
	s.mu.RLock()
	number, ok := s.data[protocol]
	s.mu.RUnlock()
	if !ok {
		return "", cases.ErrNotFound
	}
	return number, nil
}
