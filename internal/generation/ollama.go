package generation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/hyperjump/kotae/internal/models"
)

// OllamaGenerator calls the chat endpoint of a local Ollama server.
type OllamaGenerator struct {
	client      *ollama.Client
	model       string
	temperature float64
}

// NewOllamaGenerator creates a generator for model served at baseURL.
func NewOllamaGenerator(baseURL, model string, temperature float64, timeout time.Duration) (*OllamaGenerator, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	hc := &http.Client{Timeout: timeout}
	return &OllamaGenerator{
		client:      ollama.NewClient(parsedURL, hc),
		model:       model,
		temperature: temperature,
	}, nil
}

// Complete implements Generator. The response is requested unstreamed; the
// callback still accumulates in case the server splits it.
func (g *OllamaGenerator) Complete(ctx context.Context, messages []Message) (string, error) {
	msgs := make([]ollama.Message, len(messages))
	for i, m := range messages {
		msgs[i] = ollama.Message{Role: m.Role, Content: m.Content}
	}
	stream := false
	var b strings.Builder
	err := g.client.Chat(ctx, &ollama.ChatRequest{
		Model:    g.model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": g.temperature},
	}, func(resp ollama.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: ollama chat: %w", models.ErrGenerationProvider, err)
	}
	return b.String(), nil
}
