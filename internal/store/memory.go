package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore is the in-process Store used by tests and local
// development (STORE_BACKEND=memory). Values are held as the JSON they
// would occupy in Redis so both backends share encoding behavior.
type MemoryStore struct {
	mu       sync.Mutex
	values   map[string]json.RawMessage
	counters map[string]int64
	nextID   int64
	subs     []*memorySub
}

type memorySub struct {
	prefix   string
	onChange ChangeHandler
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:   make(map[string]json.RawMessage),
		counters: make(map[string]int64),
	}
}

func (s *MemoryStore) Get(ctx context.Context, path string, dest any) error {
	s.mu.Lock()
	data, ok := s.values[path]
	s.mu.Unlock()
	if !ok {
		return ErrPathNotFound
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	s.mu.Lock()
	s.values[path] = data
	subs := make([]*memorySub, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		if strings.HasPrefix(path, sub.prefix) {
			sub.onChange(path, data)
		}
	}
	return nil
}

func (s *MemoryStore) Push(ctx context.Context, collectionPath string, value any) (string, error) {
	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("-mem%06d", s.nextID)
	s.mu.Unlock()

	if err := s.Set(ctx, collectionPath+"/"+id, value); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) AtomicIncrement(ctx context.Context, counterPath string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[counterPath]++
	return s.counters[counterPath], nil
}

func (s *MemoryStore) List(ctx context.Context, collectionPath string) (map[string]json.RawMessage, error) {
	prefix := collectionPath + "/"

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]json.RawMessage)
	for path, data := range s.values {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		id := strings.TrimPrefix(path, prefix)
		if strings.Contains(id, "/") {
			continue
		}
		out[id] = data
	}
	return out, nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, pathPrefix string, onChange ChangeHandler) error {
	sub := &memorySub{prefix: pathPrefix, onChange: onChange}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		for i, candidate := range s.subs {
			if candidate == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}()

	<-ctx.Done()
	return ctx.Err()
}
