// Package storage persists session transcripts: sessions, their turns, and the sources each answer cited.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrSessionNotFound is returned when a transcript operation names an unknown session.
var ErrSessionNotFound = errors.New("session not found")

// SessionRecord describes a recorded session.
type SessionRecord struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Source     string `json:"source"`
	Turns      int64  `json:"turns"`
}

// Transcript defines the audit log operations.
type Transcript interface {
	CreateSession(ctx context.Context, rec *SessionRecord) error
	GetSession(ctx context.Context, id string) (*SessionRecord, error)
	AppendTurn(ctx context.Context, sessionID string, turn *models.Turn) error
	ListTurns(ctx context.Context, sessionID string) ([]models.Turn, error)

	// Stats
	CountSessions(ctx context.Context) (int64, error)
	CountTurns(ctx context.Context) (int64, error)

	Close() error
}
