package models

import "errors"

var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrDocumentUnreadable = errors.New("document unreadable")
	ErrInvalidChunkConfig = errors.New("invalid chunk config")
	ErrEmbeddingProvider  = errors.New("embedding provider error")
	ErrGenerationProvider = errors.New("generation provider error")
	ErrRetrieval          = errors.New("retrieval error")
	ErrInitialization     = errors.New("initialization failed")
	ErrMissingCredential  = errors.New("missing credential")
	ErrEmptyIndex         = errors.New("index has no entries")
	ErrEmptyQuestion      = errors.New("question is empty")
)

// kinds is checked in order; initialization wraps its cause, so it must come first.
var kinds = []struct {
	err  error
	name string
}{
	{ErrInitialization, "initialization"},
	{ErrMissingCredential, "missing_credential"},
	{ErrEmptyIndex, "empty_index"},
	{ErrEmptyQuestion, "empty_question"},
	{ErrDocumentNotFound, "document_not_found"},
	{ErrDocumentUnreadable, "document_unreadable"},
	{ErrInvalidChunkConfig, "invalid_chunk_config"},
	{ErrEmbeddingProvider, "embedding_provider"},
	{ErrGenerationProvider, "generation_provider"},
	{ErrRetrieval, "retrieval"},
}

// KindOf returns a stable name for the error kind of err, or "internal" when err
// does not wrap any known kind. Returns "" for nil.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

// IsRecoverable reports whether err is a per-query failure after which the
// session remains usable. Initialization and structural errors are not recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInitialization) || errors.Is(err, ErrEmptyIndex) ||
		errors.Is(err, ErrMissingCredential) || errors.Is(err, ErrEmptyQuestion) {
		return false
	}
	return errors.Is(err, ErrEmbeddingProvider) ||
		errors.Is(err, ErrGenerationProvider) ||
		errors.Is(err, ErrRetrieval)
}
