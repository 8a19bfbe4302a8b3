package indexer

import (
	"regexp"
	"strings"
	"unicode"
)

// hyphenBreak matches a word split across lines by a hyphen, as PDF text
// extraction leaves it ("assess-\nment").
var hyphenBreak = regexp.MustCompile(`(\p{Ll})-[ \t]*\r?\n\s*(\p{Ll})`)

// Preprocess normalizes page text before chunking. Hyphenated line breaks are
// rejoined, control characters other than whitespace are dropped, and every
// run of whitespace becomes a single space.
func Preprocess(text string) string {
	text = hyphenBreak.ReplaceAllString(text, "$1$2")
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}
