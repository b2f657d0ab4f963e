package llms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"taxkb/internal/kb/interfaces"
)

// OllamaLLM generates answers through a local Ollama instance.
type OllamaLLM struct {
	client *ollama.Client
	model  string
}

// NewOllamaLLM creates a new OllamaLLM client. An empty baseURL defaults to
// the standard local Ollama address.
func NewOllamaLLM(model, baseURL string) (*OllamaLLM, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	hc := &http.Client{
		Timeout: 300 * time.Second,
	}
	return &OllamaLLM{
		client: ollama.NewClient(parsedURL, hc),
		model:  model,
	}, nil
}

// Generate produces a completion for the prompt.
func (l *OllamaLLM) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	var sb strings.Builder

	err := l.client.Generate(ctx, &ollama.GenerateRequest{
		Model:  l.model,
		Prompt: prompt,
		System: systemPrompt,
		Stream: &stream,
	}, func(resp ollama.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate with ollama: %w", err)
	}
	return sb.String(), nil
}

var _ interfaces.LLM = (*OllamaLLM)(nil)
