// Package embeddings provides EmbeddingModel adapters for the supported
// providers, plus the retry and batching wrappers the pipeline composes
// around them.
package embeddings

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"taxkb/internal/kb/interfaces"
)

// OpenAIModel embeds text through an OpenAI-compatible embeddings endpoint.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel creates a new OpenAIModel client.
func NewOpenAIModel(apiKey, model string) *OpenAIModel {
	config := openai.DefaultConfig(apiKey)
	return &OpenAIModel{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Embed generates one embedding vector per input text, preserving order.
func (m *OpenAIModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(m.model),
	}

	resp, err := m.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

var _ interfaces.EmbeddingModel = (*OpenAIModel)(nil)
