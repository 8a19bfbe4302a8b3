package models

// Source is a retrieved chunk that contributed context to an answer.
type Source struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// Answer is the result of a successful query.
type Answer struct {
	Question string `json:"question"`
	// Standalone is the rewritten question used for retrieval when a follow-up
	// was condensed against history. Empty when the question was used as is.
	Standalone string    `json:"standalone,omitempty"`
	Text       string    `json:"answer"`
	Sources    []*Source `json:"sources"`
	QueryTime  int64     `json:"query_time_ms"`
}

// Pages returns the distinct page indices of the sources, in retrieval order.
func (a *Answer) Pages() []int {
	seen := make(map[int]bool, len(a.Sources))
	var pages []int
	for _, s := range a.Sources {
		if s.Chunk == nil || seen[s.Chunk.PageIndex] {
			continue
		}
		seen[s.Chunk.PageIndex] = true
		pages = append(pages, s.Chunk.PageIndex)
	}
	return pages
}
