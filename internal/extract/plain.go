package extract

import (
	"strings"
	"unicode/utf8"
)

// pageBreak separates pages in plain text, as emitted by pdftotext.
const pageBreak = "\f"

// extractPlain splits content into pages on form feeds. Invalid UTF-8
// sequences are replaced with the replacement character.
func extractPlain(content []byte) ([]string, error) {
	text := string(content)
	if !utf8.Valid(content) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	if text == "" {
		return nil, nil
	}
	pages := strings.Split(text, pageBreak)
	// A trailing form feed closes the last page rather than opening a new one.
	if len(pages) > 1 && pages[len(pages)-1] == "" {
		pages = pages[:len(pages)-1]
	}
	return pages, nil
}
