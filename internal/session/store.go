package session

import (
	"sync"

	"github.com/google/uuid"
)

// Store opens sessions by id, minting a fresh id when none is given.
type Store interface {
	Open(id string) Session
}

// MemoryStore keeps sessions in process memory. Suitable for a single
// replica; use the redis store when memory must be shared or survive
// restarts.
type MemoryStore struct {
	capacity int

	mu       sync.Mutex
	sessions map[string]*Memory
}

// NewMemoryStore creates an in-process session store.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{
		capacity: capacity,
		sessions: make(map[string]*Memory),
	}
}

// Open returns the session for the given id, creating it on first use.
func (s *MemoryStore) Open(id string) Session {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = NewMemory(s.capacity)
		sess.id = id
		s.sessions[id] = sess
	}
	return sess
}
