package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Keyspace is the durable key-value surface the garden repositories are
// built on. It mirrors the browser localStorage keyspace the product
// originally persisted into, including prefix scans over keys.
type Keyspace interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// MemoryKeyspace is a simple in-process keyspace for local/dev and tests.
type MemoryKeyspace struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryKeyspace() *MemoryKeyspace {
	return &MemoryKeyspace{values: make(map[string][]byte)}
}

func (s *MemoryKeyspace) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *MemoryKeyspace) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.values[key] = v
	return nil
}

func (s *MemoryKeyspace) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *MemoryKeyspace) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryKeyspace) Close() error { return nil }
