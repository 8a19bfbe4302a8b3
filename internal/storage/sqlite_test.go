package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

func newTestTranscript(t *testing.T) *SQLiteTranscript {
	t.Helper()
	store, err := NewSQLiteTranscript(filepath.Join(t.TempDir(), "db", "transcript.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteTranscript_Turns(t *testing.T) {
	store := newTestTranscript(t)
	ctx := context.Background()

	if err := store.CreateSession(ctx, &SessionRecord{ID: "s1", DocumentID: "doc:1", Source: "faid.pdf"}); err != nil {
		t.Fatal(err)
	}
	asked := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, q := range []string{"first?", "second?", "third?"} {
		turn := &models.Turn{
			Question: q,
			Answer:   "answer " + q,
			AskedAt:  asked.Add(time.Duration(i) * time.Minute),
			Sources: []*models.Source{
				{Chunk: &models.Chunk{ID: "c1", Source: "faid.pdf", PageIndex: i, Offset: 10, Content: "chunk one"}, Score: 0.9},
				{Chunk: &models.Chunk{ID: "c2", Source: "faid.pdf", PageIndex: 0, Offset: 0, Content: "chunk two"}, Score: 0.5},
			},
		}
		if err := store.AppendTurn(ctx, "s1", turn); err != nil {
			t.Fatalf("AppendTurn %d: %v", i, err)
		}
	}

	turns, err := store.ListTurns(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3", len(turns))
	}
	for i, q := range []string{"first?", "second?", "third?"} {
		if turns[i].Question != q {
			t.Errorf("turn %d question = %q, want %q", i, turns[i].Question, q)
		}
	}
	if !turns[0].AskedAt.Equal(asked) {
		t.Errorf("AskedAt = %v, want %v", turns[0].AskedAt, asked)
	}
	srcs := turns[2].Sources
	if len(srcs) != 2 || srcs[0].Chunk.ID != "c1" || srcs[0].Chunk.PageIndex != 2 || srcs[1].Score != 0.5 {
		t.Errorf("sources = %+v", srcs)
	}

	rec, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Turns != 3 || rec.Source != "faid.pdf" {
		t.Errorf("session = %+v", rec)
	}
	if n, _ := store.CountTurns(ctx); n != 3 {
		t.Errorf("CountTurns = %d", n)
	}
	if n, _ := store.CountSessions(ctx); n != 1 {
		t.Errorf("CountSessions = %d", n)
	}
}

func TestSQLiteTranscript_SessionsAreIsolated(t *testing.T) {
	store := newTestTranscript(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := store.CreateSession(ctx, &SessionRecord{ID: id, DocumentID: "d", Source: "s"}); err != nil {
			t.Fatal(err)
		}
	}
	_ = store.AppendTurn(ctx, "a", &models.Turn{Question: "qa", Answer: "x", AskedAt: time.Now()})
	_ = store.AppendTurn(ctx, "b", &models.Turn{Question: "qb1", Answer: "x", AskedAt: time.Now()})
	_ = store.AppendTurn(ctx, "b", &models.Turn{Question: "qb2", Answer: "x", AskedAt: time.Now()})

	a, _ := store.ListTurns(ctx, "a")
	b, _ := store.ListTurns(ctx, "b")
	if len(a) != 1 || len(b) != 2 || b[1].Question != "qb2" {
		t.Errorf("a=%v b=%v", a, b)
	}
}

func TestSQLiteTranscript_UnknownSession(t *testing.T) {
	store := newTestTranscript(t)
	ctx := context.Background()
	err := store.AppendTurn(ctx, "missing", &models.Turn{Question: "q", Answer: "a", AskedAt: time.Now()})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("AppendTurn err = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.GetSession(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession err = %v, want ErrSessionNotFound", err)
	}
	turns, err := store.ListTurns(ctx, "missing")
	if err != nil || len(turns) != 0 {
		t.Errorf("ListTurns = %v, %v", turns, err)
	}
}

func TestSQLiteTranscript_DuplicateSession(t *testing.T) {
	store := newTestTranscript(t)
	ctx := context.Background()
	rec := &SessionRecord{ID: "dup", DocumentID: "d", Source: "s"}
	if err := store.CreateSession(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateSession(ctx, rec); err == nil {
		t.Error("expected error for duplicate session")
	}
}

func TestSQLiteTranscript_InMemory(t *testing.T) {
	store, err := NewSQLiteTranscript(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()
	if err := store.CreateSession(ctx, &SessionRecord{ID: "m", DocumentID: "d", Source: "s"}); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.CountSessions(ctx); n != 1 {
		t.Errorf("CountSessions = %d", n)
	}
}
