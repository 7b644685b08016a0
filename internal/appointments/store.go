package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the single persistence boundary for appointments.
type Store interface {
	// Create persists a new record with status PENDING and returns it.
	Create(ctx context.Context, sub Submission) (*Appointment, error)
	Get(ctx context.Context, id string) (*Appointment, error)
	// UpdateStatus rejects edges outside the lifecycle graph without writing.
	UpdateStatus(ctx context.Context, id string, to Status) (*Appointment, error)
	// Reschedule moves a PENDING or CONFIRMED appointment to a new slot.
	Reschedule(ctx context.Context, id, date, timeOfDay string) (*Appointment, error)
	// FindByFilter returns every match, newest first, without pagination.
	FindByFilter(ctx context.Context, f Filter) ([]Appointment, error)
}

// MemoryStore keeps appointments in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*memoryEntry
	seq   int64
	now   func() time.Time
}

type memoryEntry struct {
	appt Appointment
	seq  int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*memoryEntry),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(_ context.Context, sub Submission) (*Appointment, error) {
	appt := Normalize(sub)
	now := s.now()
	appt.ID = uuid.NewString()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.items[appt.ID] = &memoryEntry{appt: appt, seq: s.seq}
	out := appt
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := entry.appt
	return &out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, to Status) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.appt.Status.CanTransition(to) {
		return nil, &TransitionError{From: entry.appt.Status, To: to}
	}
	entry.appt.Status = to
	entry.appt.UpdatedAt = s.now()
	out := entry.appt
	return &out, nil
}

func (s *MemoryStore) Reschedule(_ context.Context, id, date, timeOfDay string) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.appt.Status.Reschedulable() {
		return nil, ErrNotReschedulable
	}
	entry.appt.PreferredDate = date
	entry.appt.PreferredTime = timeOfDay
	entry.appt.UpdatedAt = s.now()
	out := entry.appt
	return &out, nil
}

func (s *MemoryStore) FindByFilter(_ context.Context, f Filter) ([]Appointment, error) {
	s.mu.RLock()
	matches := make([]*memoryEntry, 0, len(s.items))
	for _, entry := range s.items {
		if f.Matches(entry.appt) {
			matches = append(matches, entry)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.appt.CreatedAt.Equal(b.appt.CreatedAt) {
			return a.appt.CreatedAt.After(b.appt.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]Appointment, 0, len(matches))
	for _, entry := range matches {
		out = append(out, entry.appt)
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
