// Package session holds per-conversation memory. A session is created by
// the caller and passed into every query; the engine never owns a global
// history list.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kailas-cloud/eventdex/internal/domain"
)

// Session is the conversational memory handle for one assistant session.
// Implementations must be safe for concurrent use; the assistant appends a
// (user, assistant) turn pair after each successful answer.
type Session interface {
	ID() string
	// Window returns up to the last n turns in chronological order.
	Window(ctx context.Context, n int) ([]domain.ConversationTurn, error)
	Append(ctx context.Context, turns ...domain.ConversationTurn) error
}

// Memory is an in-process ring buffer session. Oldest turns are evicted
// once capacity is reached.
type Memory struct {
	id       string
	capacity int

	mu    sync.Mutex
	turns []domain.ConversationTurn
}

// NewMemory creates an in-memory session with the given turn capacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 24
	}
	return &Memory{
		id:       uuid.NewString(),
		capacity: capacity,
	}
}

// ID returns the session identifier.
func (m *Memory) ID() string { return m.id }

// Window returns up to the last n turns in chronological order.
func (m *Memory) Window(_ context.Context, n int) ([]domain.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 || len(m.turns) == 0 {
		return nil, nil
	}
	start := len(m.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]domain.ConversationTurn, len(m.turns)-start)
	copy(out, m.turns[start:])
	return out, nil
}

// Append records turns, evicting the oldest beyond capacity.
func (m *Memory) Append(_ context.Context, turns ...domain.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, turns...)
	if over := len(m.turns) - m.capacity; over > 0 {
		m.turns = append(m.turns[:0:0], m.turns[over:]...)
	}
	return nil
}

// Len returns the number of retained turns.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}
