package triage

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStore keeps the live workflows keyed by session identifier.
type SessionStore interface {
	Create(w *Workflow) error
	Get(id uuid.UUID) (*Workflow, error)
	Delete(id uuid.UUID) error
	// Sweep drops workflows idle longer than the TTL and returns how many
	// were removed.
	Sweep(now time.Time, ttl time.Duration) int
}

// InMemorySessionStore is a mutex-guarded in-memory SessionStore. Workflow
// state never outlives the process; each workflow is only ever touched by its
// own session, so the lock protects the map, not the workflows.
type InMemorySessionStore struct {
	mu        sync.RWMutex
	workflows map[uuid.UUID]*Workflow
}

// NewInMemorySessionStore creates an empty store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{workflows: make(map[uuid.UUID]*Workflow)}
}

func (s *InMemorySessionStore) Create(w *Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[w.ID] = w
	return nil
}

func (s *InMemorySessionStore) Get(id uuid.UUID) (*Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workflows[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return w, nil
}

func (s *InMemorySessionStore) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, id)
	return nil
}

func (s *InMemorySessionStore) Sweep(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, w := range s.workflows {
		if now.Sub(w.UpdatedAt) > ttl {
			delete(s.workflows, id)
			removed++
		}
	}
	return removed
}
