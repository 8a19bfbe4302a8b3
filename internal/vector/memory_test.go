package vector

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func entries(vecs ...[]float32) []Entry {
	out := make([]Entry, len(vecs))
	for i, v := range vecs {
		out[i] = Entry{Chunk: &models.Chunk{ID: string(rune('a' + i)), ChunkIndex: i}, Vector: v}
	}
	return out
}

func TestMemoryIndex_BuildSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := idx.Build(ctx, entries(
		[]float32{1, 0, 0},
		[]float32{0.9, 0.1, 0},
		[]float32{0, 1, 0},
	)); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{2, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.ID != "a" || results[1].Chunk.ID != "b" {
		t.Errorf("order = %s,%s, want a,b", results[0].Chunk.ID, results[1].Chunk.ID)
	}
	if math.Abs(results[0].Score-1) > 1e-6 {
		t.Errorf("top score = %v, want 1 (cosine ignores magnitude)", results[0].Score)
	}
}

func TestMemoryIndex_TiesKeepInsertionOrder(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	if err := idx.Build(ctx, entries(
		[]float32{0, 1},
		[]float32{1, 0},
		[]float32{2, 0},
		[]float32{3, 0},
	)); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, []float32{1, 0}, 4)
	if err != nil {
		t.Fatal(err)
	}
	got := ""
	for _, r := range results {
		got += r.Chunk.ID
	}
	if got != "bcda" {
		t.Errorf("order = %q, want bcda", got)
	}
}

func TestMemoryIndex_KLargerThanSize(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	_ = idx.Build(context.Background(), entries([]float32{1, 0}))
	results, err := idx.Search(context.Background(), []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestMemoryIndex_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("search before build", func(t *testing.T) {
		idx, _ := NewMemoryIndex(2)
		if _, err := idx.Search(ctx, []float32{1, 0}, 1); !errors.Is(err, ErrNotBuilt) {
			t.Errorf("err = %v, want ErrNotBuilt", err)
		}
	})

	t.Run("build twice", func(t *testing.T) {
		idx, _ := NewMemoryIndex(2)
		_ = idx.Build(ctx, nil)
		if err := idx.Build(ctx, nil); !errors.Is(err, ErrAlreadyBuilt) {
			t.Errorf("err = %v, want ErrAlreadyBuilt", err)
		}
	})

	t.Run("empty index", func(t *testing.T) {
		idx, _ := NewMemoryIndex(2)
		if err := idx.Build(ctx, nil); err != nil {
			t.Fatal(err)
		}
		if !idx.Built() || idx.Size() != 0 {
			t.Fatalf("Built=%v Size=%d", idx.Built(), idx.Size())
		}
		if _, err := idx.Search(ctx, []float32{1, 0}, 1); !errors.Is(err, models.ErrEmptyIndex) {
			t.Errorf("err = %v, want ErrEmptyIndex", err)
		}
	})

	t.Run("dimension mismatch on build", func(t *testing.T) {
		idx, _ := NewMemoryIndex(2)
		if err := idx.Build(ctx, entries([]float32{1, 0, 0})); err == nil {
			t.Error("expected error")
		}
		if idx.Built() {
			t.Error("failed build must leave index unbuilt")
		}
	})

	t.Run("dimension mismatch on search", func(t *testing.T) {
		idx, _ := NewMemoryIndex(2)
		_ = idx.Build(ctx, entries([]float32{1, 0}))
		if _, err := idx.Search(ctx, []float32{1}, 1); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("non-positive dimensions", func(t *testing.T) {
		if _, err := NewMemoryIndex(0); err == nil {
			t.Error("expected error")
		}
	})
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2}, []float32{1, 2}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	x := []float32{3, 4}
	Normalize(x)
	if math.Abs(float64(x[0])-0.6) > 1e-6 || math.Abs(float64(x[1])-0.8) > 1e-6 {
		t.Errorf("got %v", x)
	}
	if n := L2Norm(x); math.Abs(n-1) > 1e-6 {
		t.Errorf("norm after Normalize = %v", n)
	}
	zero := []float32{0, 0}
	Normalize(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector changed: %v", zero)
	}
}
