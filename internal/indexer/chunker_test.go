package indexer

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/models"
)

func docWithPages(texts ...string) *models.Document {
	doc := &models.Document{ID: "doc:test", Source: "test.txt"}
	for i, t := range texts {
		doc.Pages = append(doc.Pages, models.Page{Index: i, Text: t})
	}
	return doc
}

func TestNewChunker_invalidConfig(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 20},
		{"zero size", 0, 0},
		{"negative overlap", 10, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewChunker(tt.size, tt.overlap); !errors.Is(err, models.ErrInvalidChunkConfig) {
				t.Errorf("NewChunker(%d, %d) error = %v, want ErrInvalidChunkConfig", tt.size, tt.overlap, err)
			}
		})
	}
}

func TestChunker_Chunk(t *testing.T) {
	c, err := NewChunker(10, 3)
	if err != nil {
		t.Fatal(err)
	}
	text := "abcdefghijklmnopqrstuvwxyz"
	chunks := c.Chunk(docWithPages(text))

	want := []string{"abcdefghij", "hijklmnopq", "opqrstuvwx", "vwxyz"}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i, ch := range chunks {
		if ch.Content != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, ch.Content, want[i])
		}
		if ch.Offset != i*7 {
			t.Errorf("chunk %d offset = %d, want %d", i, ch.Offset, i*7)
		}
		if ch.ChunkIndex != i || ch.DocumentID != "doc:test" || ch.Source != "test.txt" {
			t.Errorf("chunk %d metadata = %+v", i, ch)
		}
	}
}

func TestChunker_Properties(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	tests := []struct {
		size, overlap int
	}{
		{1000, 200},
		{100, 20},
		{50, 0},
		{7, 6},
		{33, 10},
	}
	for _, tt := range tests {
		c, err := NewChunker(tt.size, tt.overlap)
		if err != nil {
			t.Fatal(err)
		}
		chunks := c.Chunk(docWithPages(text))
		normalized := []rune(Preprocess(text))
		for i, ch := range chunks {
			n := utf8.RuneCountInString(ch.Content)
			if n > tt.size {
				t.Errorf("size=%d: chunk %d has %d runes", tt.size, i, n)
			}
			if i == 0 {
				continue
			}
			prev := []rune(chunks[i-1].Content)
			remaining := len(normalized) - ch.Offset
			shared := tt.overlap
			if remaining < shared {
				shared = remaining
			}
			tail := string(prev[len(prev)-shared:])
			head := string([]rune(ch.Content)[:shared])
			if tail != head {
				t.Errorf("size=%d overlap=%d: chunk %d shares %q, want %q", tt.size, tt.overlap, i, head, tail)
			}
		}
		last := chunks[len(chunks)-1]
		if end := last.Offset + utf8.RuneCountInString(last.Content); end != len(normalized) {
			t.Errorf("size=%d: last chunk ends at %d, text has %d runes", tt.size, end, len(normalized))
		}
	}
}

func TestChunker_Deterministic(t *testing.T) {
	c, _ := NewChunker(20, 5)
	doc := docWithPages("first page with some text in it", "second page, also with text")
	a := c.Chunk(doc)
	b := c.Chunk(doc)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if *a[i] != *b[i] {
			t.Errorf("chunk %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestChunker_PagesAreIndependent(t *testing.T) {
	c, _ := NewChunker(8, 2)
	chunks := c.Chunk(docWithPages("aaaaaaaaaa", "", "bbbb"))
	pages := map[int]int{}
	for _, ch := range chunks {
		pages[ch.PageIndex]++
		if strings.Contains(ch.Content, "a") && strings.Contains(ch.Content, "b") {
			t.Errorf("chunk spans pages: %q", ch.Content)
		}
	}
	if pages[0] != 2 || pages[1] != 0 || pages[2] != 1 {
		t.Errorf("chunks per page = %v", pages)
	}
	for i, ch := range chunks {
		if ch.ChunkIndex != i {
			t.Errorf("ChunkIndex %d at position %d", ch.ChunkIndex, i)
		}
	}
}

func TestChunker_Empty(t *testing.T) {
	c, _ := NewChunker(5, 1)
	if chunks := c.Chunk(docWithPages("   \n\t  ")); len(chunks) != 0 {
		t.Errorf("blank page should produce no chunks, got %d", len(chunks))
	}
	if chunks := c.Chunk(&models.Document{ID: "d"}); len(chunks) != 0 {
		t.Errorf("document without pages should produce no chunks, got %d", len(chunks))
	}
}

func TestChunker_Multibyte(t *testing.T) {
	c, _ := NewChunker(3, 1)
	chunks := c.Chunk(docWithPages("日本語のテキスト"))
	if chunks[0].Content != "日本語" || chunks[1].Content != "語のテ" {
		t.Errorf("got %q, %q", chunks[0].Content, chunks[1].Content)
	}
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "  a  b\n\nc\t ", "a b c"},
		{"rejoins hyphenated line break", "fatigue assess-\nment tool", "fatigue assessment tool"},
		{"keeps real hyphens", "well-known Covid-\n19", "well-known Covid- 19"},
		{"drops control characters", "page\x00 one\x0c", "page one"},
		{"empty", " \n\t", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preprocess(tt.in); got != tt.want {
				t.Errorf("Preprocess(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
