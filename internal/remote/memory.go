package remote

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. Every profile in the same process shares it.
type MemoryStore struct {
	mu       sync.Mutex
	values   map[string][]byte
	watchers map[string]map[*mailbox]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:   make(map[string][]byte),
		watchers: make(map[string]map[*mailbox]struct{}),
	}
}

// mailbox keeps only the latest undelivered value; full-value updates make older ones redundant.
type mailbox struct {
	mu      sync.Mutex
	pending []byte
	has     bool
	signal  chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

func (m *mailbox) put(v []byte) {
	m.mu.Lock()
	m.pending = v
	m.has = true
	m.mu.Unlock()
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox) take() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.pending, m.has
	m.pending, m.has = nil, false
	return v, ok
}

func (s *MemoryStore) Set(ctx context.Context, path string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := append([]byte(nil), value...)
	s.mu.Lock()
	s.values[path] = v
	for mb := range s.watchers[path] {
		mb.put(v)
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[path]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Watch(ctx context.Context, path string, onValue func([]byte)) error {
	mb := newMailbox()

	s.mu.Lock()
	if s.watchers[path] == nil {
		s.watchers[path] = make(map[*mailbox]struct{})
	}
	s.watchers[path][mb] = struct{}{}
	mb.put(s.values[path])
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.watchers[path], mb)
			s.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-mb.signal:
				if v, ok := mb.take(); ok {
					onValue(v)
				}
			}
		}
	}()
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
