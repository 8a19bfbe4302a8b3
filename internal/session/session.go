// Package session answers questions about a document while keeping conversation history.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/memory"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// ErrorPrefix starts the user-visible text ProcessQuery returns for recoverable failures.
const ErrorPrefix = "An error occurred: "

// State is the lifecycle state of a Session.
type State int

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "uninitialized"
}

// Recorder receives every completed turn, e.g. for an audit log.
type Recorder interface {
	AppendTurn(ctx context.Context, sessionID string, turn *models.Turn) error
}

// Session owns one conversation over one document index. Queries on a session
// are serialized; separate sessions are independent.
type Session struct {
	id        string
	source    IndexSource
	embedder  embedding.Embedder
	generator generation.Generator
	recorder  Recorder
	logger    *zap.Logger

	topK     int
	minScore float64
	condense bool
	maxTurns int

	// mu serializes Initialize and Ask. stateMu guards state and the history
	// pointer so readers are not held up by a query in flight.
	mu      sync.Mutex
	index   vector.Index
	stateMu sync.RWMutex
	state   State
	history *memory.Memory
}

// Option configures a Session.
type Option func(*Session)

// WithID sets the session ID; a random UUID is used otherwise.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithTopK sets how many chunks are retrieved per question.
func WithTopK(k int) Option {
	return func(s *Session) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithMinScore drops retrieved chunks scoring below min. Without it no chunk is dropped.
func WithMinScore(min float64) Option {
	return func(s *Session) { s.minScore = min }
}

// WithCondenseQuestion rewrites follow-up questions into standalone ones before retrieval.
func WithCondenseQuestion(enabled bool) Option {
	return func(s *Session) { s.condense = enabled }
}

// WithMaxTurns bounds how many past turns are sent to the generator. <= 0 is unbounded.
func WithMaxTurns(n int) Option {
	return func(s *Session) { s.maxTurns = n }
}

// WithRecorder sets where completed turns are recorded.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New returns an uninitialized session. Nothing is loaded until Initialize or the first Ask.
func New(source IndexSource, embedder embedding.Embedder, generator generation.Generator, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		source:    source,
		embedder:  embedder,
		generator: generator,
		logger:    zap.NewNop(),
		topK:      4,
		minScore:  math.Inf(-1),
		maxTurns:  10,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session", s.id))
	return s
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// History returns the full conversation so far, oldest first.
func (s *Session) History() []models.Turn {
	s.stateMu.RLock()
	history := s.history
	s.stateMu.RUnlock()
	if history == nil {
		return nil
	}
	return history.Turns()
}

// Initialize prepares the index and an empty history. It is a no-op once the
// session is ready. On failure the session stays uninitialized and a later call
// starts over; the returned error wraps models.ErrInitialization and the cause.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked(ctx)
}

func (s *Session) initLocked(ctx context.Context) error {
	if s.State() == StateReady {
		return nil
	}
	start := time.Now()
	index, err := s.source.Index(ctx)
	if err != nil {
		s.logger.Error("session initialization failed", zap.Error(err))
		return fmt.Errorf("%w: %w", models.ErrInitialization, err)
	}
	s.index = index
	s.stateMu.Lock()
	s.history = memory.New(s.maxTurns)
	s.state = StateReady
	s.stateMu.Unlock()
	s.logger.Info("session ready",
		zap.Int("entries", index.Size()),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Ask answers question using retrieved context and the conversation so far.
// The session is initialized first if needed. A turn is appended to the history
// only when an answer is produced. Use models.IsRecoverable to tell per-query
// provider failures from initialization or structural ones.
func (s *Session) Ask(ctx context.Context, question string) (*models.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, models.ErrEmptyQuestion
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if err := s.initLocked(ctx); err != nil {
		return nil, err
	}
	if s.index.Size() == 0 {
		return nil, fmt.Errorf("%w: the document produced no chunks", models.ErrEmptyIndex)
	}

	window := s.history.Window()
	retrievalQuestion, standalone := question, ""
	if s.condense && len(window) > 0 {
		rewritten, err := s.generator.Complete(ctx, generation.CondenseMessages(question, window))
		if err != nil {
			return nil, fmt.Errorf("condense question: %w", withKind(err, models.ErrGenerationProvider))
		}
		if r := strings.TrimSpace(rewritten); r != "" && r != question {
			retrievalQuestion, standalone = r, r
		}
	}

	sources, err := s.retrieve(ctx, retrievalQuestion)
	if err != nil {
		return nil, err
	}

	text, err := s.generator.Complete(ctx, generation.AnswerMessages(question, sources, window))
	if err != nil {
		s.logger.Warn("generation failed", zap.Error(err))
		return nil, fmt.Errorf("generate answer: %w", withKind(err, models.ErrGenerationProvider))
	}

	turn := models.Turn{
		Question: question,
		Answer:   text,
		Sources:  sources,
		AskedAt:  start,
	}
	s.history.Append(turn)
	if s.recorder != nil {
		if err := s.recorder.AppendTurn(ctx, s.id, &turn); err != nil {
			s.logger.Warn("failed to record turn", zap.Error(err))
		}
	}

	elapsed := time.Since(start)
	s.logger.Debug("question answered",
		zap.Int("sources", len(sources)),
		zap.Int("turns", s.history.Len()),
		zap.Duration("duration", elapsed))
	return &models.Answer{
		Question:   question,
		Standalone: standalone,
		Text:       text,
		Sources:    sources,
		QueryTime:  elapsed.Milliseconds(),
	}, nil
}

// retrieve embeds question and returns the top chunks that pass the score gate.
func (s *Session) retrieve(ctx context.Context, question string) ([]*models.Source, error) {
	qvec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		s.logger.Warn("question embedding failed", zap.Error(err))
		return nil, fmt.Errorf("embed question: %w", withKind(err, models.ErrEmbeddingProvider))
	}
	hits, err := s.index.Search(ctx, qvec, s.topK)
	if err != nil {
		if errors.Is(err, models.ErrEmptyIndex) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrRetrieval, err)
	}
	sources := make([]*models.Source, 0, len(hits))
	for _, h := range hits {
		if h.Score < s.minScore {
			continue
		}
		sources = append(sources, &models.Source{Chunk: h.Chunk, Score: h.Score})
	}
	return sources, nil
}

// ProcessQuery answers question and returns only the answer text. Recoverable
// failures are reported in the text itself, prefixed with ErrorPrefix, and the
// session stays usable. Initialization, empty-index, and empty-question errors
// are returned as errors.
func (s *Session) ProcessQuery(ctx context.Context, question string) (string, error) {
	ans, err := s.Ask(ctx, question)
	if err != nil {
		if models.IsRecoverable(err) {
			return ErrorPrefix + err.Error(), nil
		}
		return "", err
	}
	return ans.Text, nil
}

// withKind wraps err with kind unless it already carries it.
func withKind(err, kind error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
