package generation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/kotae/pkg/utils"
)

// NoAnswer is returned by MockGenerator when no context is available.
const NoAnswer = "I don't know based on the provided document."

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// MockGenerator is an offline, extractive generator. Given an answer prompt it
// replies with the context sentence sharing the most terms with the question,
// citing its page. Given any other prompt it echoes the last user message, which
// makes question condensing an identity rewrite.
type MockGenerator struct{}

// NewMockGenerator returns a MockGenerator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Complete implements Generator.
func (g *MockGenerator) Complete(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var system, question string
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = m.Content
		case RoleUser:
			question = m.Content
		}
	}
	if !strings.Contains(system, contextHeader) {
		return question, nil
	}
	blocks := parseContext(system)
	if len(blocks) == 0 {
		return NoAnswer, nil
	}

	terms := make(map[string]bool)
	for _, t := range utils.ContentTerms(question) {
		terms[t] = true
	}
	best, bestBlock, bestScore := "", blocks[0], -1
	for _, b := range blocks {
		for _, s := range splitSentences(b.text) {
			score := 0
			for _, t := range utils.Tokenize(s) {
				if terms[t] {
					score++
				}
			}
			if score > bestScore {
				best, bestBlock, bestScore = s, b, score
			}
		}
	}
	return fmt.Sprintf("%s (%s, page %d)", best, bestBlock.source, bestBlock.page), nil
}

func splitSentences(text string) []string {
	idx := sentenceEnd.FindAllStringIndex(text, -1)
	var out []string
	start := 0
	for _, loc := range idx {
		out = append(out, strings.TrimSpace(text[start:loc[0]+1]))
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
