package embedding

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRetryBaseDelay = 200 * time.Millisecond
	maxRetryDelay         = 5 * time.Second
)

// RetryEmbedder retries failed provider calls with exponential backoff.
type RetryEmbedder struct {
	inner      Embedder
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

// RetryOption configures a RetryEmbedder.
type RetryOption func(*RetryEmbedder)

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(d time.Duration) RetryOption {
	return func(r *RetryEmbedder) { r.baseDelay = d }
}

// WithRetryLogger sets the logger used to report retries.
func WithRetryLogger(l *zap.Logger) RetryOption {
	return func(r *RetryEmbedder) { r.logger = l }
}

// NewRetryEmbedder wraps inner so each call is attempted up to maxRetries+1 times.
func NewRetryEmbedder(inner Embedder, maxRetries int, opts ...RetryOption) *RetryEmbedder {
	r := &RetryEmbedder{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  defaultRetryBaseDelay,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RetryEmbedder) retryDelay(attempt int) time.Duration {
	d := r.baseDelay << attempt
	if d <= 0 || d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

func (r *RetryEmbedder) do(ctx context.Context, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= r.maxRetries || ctx.Err() != nil {
			return err
		}
		delay := r.retryDelay(attempt)
		r.logger.Warn("embedding call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// Embed calls the inner Embed, retrying on failure.
func (r *RetryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := r.do(ctx, "embed", func() error {
		var err error
		out, err = r.inner.Embed(ctx, text)
		return err
	})
	return out, err
}

// EmbedBatch calls the inner EmbedBatch, retrying the whole batch on failure.
func (r *RetryEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := r.do(ctx, "embed_batch", func() error {
		var err error
		out, err = r.inner.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

// Dimensions returns the inner embedder's dimension.
func (r *RetryEmbedder) Dimensions() int {
	return r.inner.Dimensions()
}

// Close closes the inner embedder.
func (r *RetryEmbedder) Close() error {
	return r.inner.Close()
}
