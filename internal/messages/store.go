package messages

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists inbox messages.
type Store interface {
	Create(ctx context.Context, m Message) (*Message, error)
	Get(ctx context.Context, id string) (*Message, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Message, error)
	Delete(ctx context.Context, id string) error
	// List returns matches newest first.
	List(ctx context.Context, f Filter) ([]Message, error)
}

// MemoryStore keeps messages in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	seq   int64
	now   func() time.Time
}

type memoryEntry struct {
	msg Message
	seq int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryEntry),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(_ context.Context, m Message) (*Message, error) {
	now := s.now()
	m.ID = uuid.NewString()
	m.CreatedAt = now
	m.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.items[m.ID] = memoryEntry{msg: m, seq: s.seq}
	return &m, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	m := entry.msg
	return &m, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status Status) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	entry.msg.Status = status
	entry.msg.UpdatedAt = s.now()
	s.items[id] = entry
	m := entry.msg
	return &m, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]Message, error) {
	s.mu.RLock()
	entries := make([]memoryEntry, 0, len(s.items))
	for _, e := range s.items {
		if f.matches(e.msg) {
			entries = append(entries, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].msg.CreatedAt.Equal(entries[j].msg.CreatedAt) {
			return entries[i].msg.CreatedAt.After(entries[j].msg.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})
	out := make([]Message, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.msg)
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
