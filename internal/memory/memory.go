// Package memory holds the conversation history of a session.
package memory

import (
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// Memory is an append-only, chronological log of turns. The full log is always
// retained; Window bounds what is handed to the generator.
type Memory struct {
	maxTurns int
	turns    []models.Turn
	mu       sync.RWMutex
}

// New returns an empty Memory whose window holds the last maxTurns turns.
// maxTurns <= 0 makes the window unbounded.
func New(maxTurns int) *Memory {
	return &Memory{maxTurns: maxTurns}
}

// Append adds a turn at the end of the log.
func (m *Memory) Append(t models.Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, t)
}

// Turns returns a copy of the full log, oldest first.
func (m *Memory) Turns() []models.Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Window returns a copy of the most recent turns that fit the window, oldest first.
func (m *Memory) Window() []models.Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start := 0
	if m.maxTurns > 0 && len(m.turns) > m.maxTurns {
		start = len(m.turns) - m.maxTurns
	}
	out := make([]models.Turn, len(m.turns)-start)
	copy(out, m.turns[start:])
	return out
}

// Len returns the number of turns in the full log.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}
