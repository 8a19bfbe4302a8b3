package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// NewFunc creates a session with the given ID.
type NewFunc func(ctx context.Context, id string) (*Session, error)

// Manager keeps independent sessions by ID.
type Manager struct {
	newSession NewFunc
	sessions   map[string]*Session
	mu         sync.RWMutex
}

// NewManager returns a Manager that creates sessions with newSession.
func NewManager(newSession NewFunc) *Manager {
	return &Manager{
		newSession: newSession,
		sessions:   make(map[string]*Session),
	}
}

// Create starts a new session with a random ID.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	s, err := m.newSession(ctx, uuid.NewString())
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete forgets the session with id and reports whether it existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
