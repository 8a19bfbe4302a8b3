// Package models defines core data structures for documents, chunks, conversation turns, and answers.
package models

import "time"

// Document is a loaded source document, split into ordered pages.
type Document struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source"`
	Pages  []Page `json:"pages"`
}

// Page is one unit of a document. Index is 0-based.
type Page struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Chunk is a contiguous span of a single page. Offset is measured in runes.
type Chunk struct {
	ID         string `json:"id" db:"id"`
	DocumentID string `json:"document_id" db:"document_id"`
	Source     string `json:"source" db:"source"`
	PageIndex  int    `json:"page" db:"page_index"`
	Offset     int    `json:"offset" db:"offset"`
	ChunkIndex int    `json:"chunk_index" db:"chunk_index"`
	Content    string `json:"content" db:"content"`
}

// Turn is one completed question/answer exchange.
type Turn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Sources  []*Source `json:"sources,omitempty"`
	AskedAt  time.Time `json:"asked_at"`
}
