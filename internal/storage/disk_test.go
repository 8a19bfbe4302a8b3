package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"empty path", ""},
		{"in-memory", memoryPath},
		{"not created yet", filepath.Join(dir, "missing.db")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.path)
			if err != nil || got != 0 {
				t.Errorf("DiskUsageBytes(%q) = %d, %v; want 0, nil", tt.path, got, err)
			}
		})
	}

	t.Run("sums database and sidecars", func(t *testing.T) {
		db := filepath.Join(dir, "t.db")
		if err := os.WriteFile(db, []byte("12345"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(db+"-wal", []byte("abc"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "t.db.bak"), []byte("ignored"), 0644); err != nil {
			t.Fatal(err)
		}
		got, err := DiskUsageBytes(db)
		if err != nil {
			t.Fatal(err)
		}
		if got != 8 {
			t.Errorf("got %d bytes, want 8", got)
		}
	})

	t.Run("live transcript", func(t *testing.T) {
		path := filepath.Join(dir, "live", "transcript.db")
		store, err := NewSQLiteTranscript(path)
		if err != nil {
			t.Fatal(err)
		}
		defer store.Close()
		ctx := context.Background()
		if err := store.CreateSession(ctx, &SessionRecord{ID: "s1", DocumentID: "d", Source: "faid.pdf"}); err != nil {
			t.Fatal(err)
		}
		if err := store.AppendTurn(ctx, "s1", &models.Turn{Question: "q", Answer: "a", AskedAt: time.Now()}); err != nil {
			t.Fatal(err)
		}
		got, err := DiskUsageBytes(path)
		if err != nil {
			t.Fatal(err)
		}
		if got == 0 {
			t.Error("expected a non-empty database on disk")
		}
	})
}
