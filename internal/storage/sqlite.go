package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// memoryPath opens a private in-memory database.
const memoryPath = ":memory:"

// SQLiteTranscript implements Transcript using SQLite.
type SQLiteTranscript struct {
	db *sql.DB
}

// NewSQLiteTranscript opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private in-memory database.
func NewSQLiteTranscript(dbPath string) (*SQLiteTranscript, error) {
	if dbPath != memoryPath {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == memoryPath {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteTranscript{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		source TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		asked_at TIMESTAMP NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
		UNIQUE (session_id, seq)
	);

	CREATE TABLE IF NOT EXISTS turn_sources (
		turn_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		chunk_id TEXT NOT NULL,
		source TEXT NOT NULL,
		page_index INTEGER NOT NULL,
		char_offset INTEGER NOT NULL,
		content TEXT NOT NULL,
		score REAL NOT NULL,
		PRIMARY KEY (turn_id, position),
		FOREIGN KEY (turn_id) REFERENCES turns(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateSession records a new session. Recording the same ID twice is an error.
func (s *SQLiteTranscript) CreateSession(ctx context.Context, rec *SessionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, document_id, source, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.DocumentID, rec.Source, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns the session with its turn count.
func (s *SQLiteTranscript) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	var rec SessionRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT s.id, s.document_id, s.source, COUNT(t.id)
		 FROM sessions s LEFT JOIN turns t ON t.session_id = s.id
		 WHERE s.id = ? GROUP BY s.id`, id,
	).Scan(&rec.ID, &rec.DocumentID, &rec.Source, &rec.Turns)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// AppendTurn stores turn and its sources as the next turn of the session, atomically.
func (s *SQLiteTranscript) AppendTurn(ctx context.Context, sessionID string, turn *models.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO turns (session_id, seq, question, answer, asked_at)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE session_id = ?), ?, ?, ?)`,
		sessionID, sessionID, turn.Question, turn.Answer, turn.AskedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	turnID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO turn_sources (turn_id, position, chunk_id, source, page_index, char_offset, content, score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for rank, src := range turn.Sources {
		ch := src.Chunk
		if _, err := stmt.ExecContext(ctx, turnID, rank, ch.ID, ch.Source, ch.PageIndex, ch.Offset, ch.Content, src.Score); err != nil {
			return fmt.Errorf("failed to insert turn source: %w", err)
		}
	}
	return tx.Commit()
}

// ListTurns returns the session's turns in the order they were appended, with their sources.
func (s *SQLiteTranscript) ListTurns(ctx context.Context, sessionID string) ([]models.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, asked_at FROM turns WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []models.Turn
	byID := make(map[int64]int)
	for rows.Next() {
		var id int64
		var t models.Turn
		if err := rows.Scan(&id, &t.Question, &t.Answer, &t.AskedAt); err != nil {
			return nil, err
		}
		byID[id] = len(turns)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return turns, nil
	}

	srcRows, err := s.db.QueryContext(ctx,
		`SELECT ts.turn_id, ts.chunk_id, ts.source, ts.page_index, ts.char_offset, ts.content, ts.score
		 FROM turn_sources ts JOIN turns t ON t.id = ts.turn_id
		 WHERE t.session_id = ? ORDER BY ts.turn_id, ts.position`, sessionID)
	if err != nil {
		return nil, err
	}
	defer srcRows.Close()
	for srcRows.Next() {
		var turnID int64
		ch := &models.Chunk{}
		src := &models.Source{Chunk: ch}
		if err := srcRows.Scan(&turnID, &ch.ID, &ch.Source, &ch.PageIndex, &ch.Offset, &ch.Content, &src.Score); err != nil {
			return nil, err
		}
		if i, ok := byID[turnID]; ok {
			turns[i].Sources = append(turns[i].Sources, src)
		}
	}
	return turns, srcRows.Err()
}

// CountSessions returns the number of recorded sessions.
func (s *SQLiteTranscript) CountSessions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&count)
	return count, err
}

// CountTurns returns the number of recorded turns across all sessions.
func (s *SQLiteTranscript) CountTurns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM turns").Scan(&count)
	return count, err
}

// Close closes the database.
func (s *SQLiteTranscript) Close() error {
	return s.db.Close()
}
