package catalog

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type MemStore struct {
	mu sync.RWMutex
	m  map[string]json.RawMessage
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[string]json.RawMessage{}}
}

// NewStore returns a MemStore seeded with the demo catalog.
func NewStore() *MemStore {
	s := NewMemStore()
	_ = Seed(context.Background(), s, DemoFixture(time.Now().UTC()))
	return s
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Document(ctx context.Context, name string) (json.RawMessage, bool, error) {
	if !KnownDocument(name) {
		return nil, false, ErrUnknownDocument
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.m[name]
	return b, ok, nil
}

func (s *MemStore) Put(ctx context.Context, name string, body json.RawMessage) error {
	if !KnownDocument(name) {
		return ErrUnknownDocument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[name] = append(json.RawMessage(nil), body...)
	return nil
}
