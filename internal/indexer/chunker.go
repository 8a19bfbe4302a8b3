// Package indexer splits documents into chunks and builds the vector index from them.
package indexer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hyperjump/kotae/internal/models"
)

// Chunker splits page text into fixed-size, overlapping character windows.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap, in characters.
// Returns models.ErrInvalidChunkConfig unless 0 <= overlap < size.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 || chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", models.ErrInvalidChunkConfig, chunkSize, chunkOverlap)
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}, nil
}

// Size returns the maximum chunk length in characters.
func (c *Chunker) Size() int { return c.chunkSize }

// Overlap returns the number of characters shared by adjacent chunks.
func (c *Chunker) Overlap() int { return c.chunkOverlap }

// Chunk splits every page of doc into chunks, in page order. Page text is
// normalized with Preprocess first; offsets refer to the normalized text.
// Chunks never span pages and empty pages yield none. The result is a pure
// function of doc and the chunker settings.
func (c *Chunker) Chunk(doc *models.Document) []*models.Chunk {
	var chunks []*models.Chunk
	step := c.chunkSize - c.chunkOverlap
	for _, page := range doc.Pages {
		runes := []rune(Preprocess(page.Text))
		for start := 0; start < len(runes); start += step {
			end := start + c.chunkSize
			if end > len(runes) {
				end = len(runes)
			}
			chunks = append(chunks, &models.Chunk{
				ID:         chunkID(doc.ID, page.Index, start),
				DocumentID: doc.ID,
				Source:     doc.Source,
				PageIndex:  page.Index,
				Offset:     start,
				ChunkIndex: len(chunks),
				Content:    string(runes[start:end]),
			})
			if end >= len(runes) {
				break
			}
		}
	}
	return chunks
}

// chunkID derives a stable name-based UUID from the chunk's position.
func chunkID(docID string, page, offset int) string {
	name := fmt.Sprintf("%s/%d/%d", docID, page, offset)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
