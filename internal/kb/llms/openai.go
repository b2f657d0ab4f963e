// Package llms provides LLM adapters for answer generation.
package llms

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"taxkb/internal/kb/interfaces"
)

// systemPrompt frames the model as a careful tax-law assistant.
const systemPrompt = "You are a tax law assistant. Answer strictly from the provided context " +
	"and cite the context passages you used. If the context does not contain the answer, say so."

// OpenAILLM generates answers through an OpenAI-compatible chat endpoint.
type OpenAILLM struct {
	client *openai.Client
	model  string
}

// NewOpenAILLM creates a new OpenAILLM client.
func NewOpenAILLM(apiKey, model string) *OpenAILLM {
	config := openai.DefaultConfig(apiKey)
	return &OpenAILLM{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Generate produces a completion for the prompt.
func (l *OpenAILLM) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ interfaces.LLM = (*OpenAILLM)(nil)
