package embedding

import (
	"context"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len=%d, want 2", c.Len())
	}
}

func TestEmbeddingCache_GetRefreshesRecency(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Get("a")
	c.Set("c", []float32{3}) // evicts b, not a
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to remain after access")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
}

// countingEmbedder records how many texts reached the provider.
type countingEmbedder struct {
	*MockEmbedder
	texts int
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	c.texts++
	return c.MockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.texts += len(texts)
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(16)}
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	if _, err := c.Embed(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	out, err := c.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d vectors", len(out))
	}
	if inner.texts != 3 {
		t.Errorf("provider saw %d texts, want 3 (alpha served from cache)", inner.texts)
	}
	want, _ := NewMockEmbedder(16).Embed(ctx, "gamma")
	for i := range want {
		if out[2][i] != want[i] {
			t.Fatalf("batch result out of order at %d", i)
		}
	}

	if _, err := c.EmbedBatch(ctx, []string{"beta", "gamma"}); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("provider calls = %d, want 2 (fully cached batch skips provider)", inner.calls)
	}
	if c.Dimensions() != 16 {
		t.Errorf("Dimensions=%d", c.Dimensions())
	}
}
