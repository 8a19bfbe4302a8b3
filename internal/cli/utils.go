// Package cli provides CLI output helpers for Kotae.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// OutputFormat is the format for answer output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat returns the format named s. Unknown names fall back to text.
func ParseOutputFormat(s string) OutputFormat {
	if strings.EqualFold(strings.TrimSpace(s), string(OutputJSON)) {
		return OutputJSON
	}
	return OutputText
}

// WriteAnswer writes answer to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	default:
		writeAnswerText(w, answer)
		return nil
	}
}

func writeAnswerText(w io.Writer, answer *models.Answer) {
	fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(answer.Text))
	if answer.Standalone != "" {
		fmt.Fprintf(w, "\n(searched for: %s)\n", answer.Standalone)
	}
	if len(answer.Sources) == 0 {
		fmt.Fprintf(w, "\nNo sources matched (%dms)\n", answer.QueryTime)
		return
	}
	fmt.Fprintf(w, "\n%d sources in %dms\n", len(answer.Sources), answer.QueryTime)
	for i, src := range answer.Sources {
		writeOneSource(w, i+1, src)
	}
}

func writeOneSource(w io.Writer, n int, src *models.Source) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "[%d] %s, page %d | Score: %.4f\n", n, src.Chunk.Source, src.Chunk.PageIndex+1, src.Score)
	fmt.Fprintf(w, "%s\n", TruncateWords(src.Chunk.Content, 40))
}

// WriteHistory writes the turns of a conversation as numbered question and answer pairs.
func WriteHistory(w io.Writer, turns []models.Turn) {
	if len(turns) == 0 {
		fmt.Fprintln(w, "No questions asked yet.")
		return
	}
	for i, t := range turns {
		fmt.Fprintf(w, "%d. Q: %s\n   A: %s\n", i+1, t.Question, TruncateWords(t.Answer, 40))
	}
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
