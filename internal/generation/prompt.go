package generation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

const answerInstructions = `You are a helpful assistant answering questions about a document.
Use only the context below to answer. If the context does not contain the answer, say that you don't know.`

const condenseInstructions = `Given the conversation so far and a follow-up question, rephrase the follow-up
into a standalone question that can be understood without the conversation. Reply with the question only.`

const contextHeader = "Context:"

// contextBlockRe matches the header line of one numbered context block.
var contextBlockRe = regexp.MustCompile(`(?m)^\[(\d+)\] (.+), page (\d+)$`)

// AnswerMessages builds the chat transcript for answering question from sources,
// preceded by prior turns in chronological order.
func AnswerMessages(question string, sources []*models.Source, history []models.Turn) []Message {
	var sys strings.Builder
	sys.WriteString(answerInstructions)
	sys.WriteString("\n\n")
	sys.WriteString(contextHeader)
	if len(sources) == 0 {
		sys.WriteString("\n(no relevant context found)")
	}
	for i, s := range sources {
		fmt.Fprintf(&sys, "\n[%d] %s, page %d\n%s\n", i+1, s.Chunk.Source, s.Chunk.PageIndex+1, s.Chunk.Content)
	}

	msgs := make([]Message, 0, 2+2*len(history))
	msgs = append(msgs, Message{Role: RoleSystem, Content: strings.TrimRight(sys.String(), "\n")})
	msgs = appendHistory(msgs, history)
	return append(msgs, Message{Role: RoleUser, Content: question})
}

// CondenseMessages builds the chat transcript asking the generator to rewrite a
// follow-up question so it stands alone for retrieval.
func CondenseMessages(question string, history []models.Turn) []Message {
	msgs := make([]Message, 0, 2+2*len(history))
	msgs = append(msgs, Message{Role: RoleSystem, Content: condenseInstructions})
	msgs = appendHistory(msgs, history)
	return append(msgs, Message{Role: RoleUser, Content: question})
}

func appendHistory(msgs []Message, history []models.Turn) []Message {
	for _, t := range history {
		msgs = append(msgs,
			Message{Role: RoleUser, Content: t.Question},
			Message{Role: RoleAssistant, Content: t.Answer},
		)
	}
	return msgs
}

// contextBlock is one parsed entry of the context section of a system prompt.
type contextBlock struct {
	source string
	page   int
	text   string
}

// parseContext extracts the numbered context blocks from a system prompt built by AnswerMessages.
func parseContext(system string) []contextBlock {
	i := strings.Index(system, contextHeader)
	if i < 0 {
		return nil
	}
	body := system[i+len(contextHeader):]
	locs := contextBlockRe.FindAllStringSubmatchIndex(body, -1)
	blocks := make([]contextBlock, 0, len(locs))
	for n, loc := range locs {
		end := len(body)
		if n+1 < len(locs) {
			end = locs[n+1][0]
		}
		page, _ := strconv.Atoi(body[loc[6]:loc[7]])
		blocks = append(blocks, contextBlock{
			source: body[loc[4]:loc[5]],
			page:   page,
			text:   strings.TrimSpace(body[loc[1]:end]),
		})
	}
	return blocks
}
