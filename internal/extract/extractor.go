// Package extract loads documents from disk and splits them into ordered pages.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

const docIDPrefix = "doc:"

// Extractor loads documents and extracts per-page plain text.
type Extractor struct {
	logger *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used to report skipped or empty pages.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load reads the file at path and returns it as a Document with one Page per
// PDF page, slide, sheet, or form-feed separated block of plain text.
// Returns models.ErrDocumentNotFound when path does not exist and
// models.ErrDocumentUnreadable when its content cannot be parsed.
func (e *Extractor) Load(ctx context.Context, path string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrDocumentNotFound, path)
		}
		return nil, fmt.Errorf("%w: read %s: %w", models.ErrDocumentUnreadable, path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	pages, err := e.ExtractBytes(content, ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrDocumentUnreadable, path, err)
	}

	doc := &models.Document{
		ID:     DocumentID(path),
		Title:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Source: filepath.Base(path),
		Pages:  make([]models.Page, len(pages)),
	}
	for i, text := range pages {
		doc.Pages[i] = models.Page{Index: i, Text: text}
	}
	e.logger.Debug("document loaded",
		zap.String("path", path),
		zap.String("format", ext),
		zap.Int("pages", len(doc.Pages)))
	return doc, nil
}

// ExtractBytes extracts page texts from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) ([]string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content, e.logger)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".pptx":
		return extractPPTX(content)
	default:
		// .txt, .md, .rst and unknown extensions are read as plain text
		return extractPlain(content)
	}
}

// DocumentID returns a stable document ID for path.
// The same cleaned absolute path always yields the same ID.
func DocumentID(path string) string {
	normalized := filepath.Clean(path)
	if abs, err := filepath.Abs(normalized); err == nil {
		normalized = abs
	}
	hash := sha256.Sum256([]byte(normalized))
	return docIDPrefix + hex.EncodeToString(hash[:])
}
