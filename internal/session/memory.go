package session

import (
	"context"
	"sync"
)

// MemoryStore keeps the pair in process memory.
type MemoryStore struct {
	mu sync.Mutex
	p  *Persisted
}

// NewMemoryStore returns a store optionally seeded with a pair.
func NewMemoryStore(seed *Persisted) *MemoryStore {
	s := &MemoryStore{}
	if seed != nil {
		cp := *seed
		s.p = &cp
	}
	return s
}

func (s *MemoryStore) Load(context.Context) (*Persisted, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return nil, nil
	}
	cp := *s.p
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, p Persisted) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p = &p
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p = nil
	return nil
}
