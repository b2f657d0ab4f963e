package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"taxkb/internal/kb/interfaces"
)

// defaultHuggingFaceBaseURL is the feature-extraction pipeline endpoint of
// the Hugging Face Inference API.
const defaultHuggingFaceBaseURL = "https://api-inference.huggingface.co/pipeline/feature-extraction/"

// HuggingFaceModel embeds text through the Hugging Face Inference API, which
// hosts the sentence-transformer models used for the knowledge base.
type HuggingFaceModel struct {
	client  *http.Client
	model   string
	apiKey  string
	baseURL string
}

// NewHuggingFaceModel creates a new HuggingFaceModel client. An empty
// baseURL defaults to the public Inference API endpoint.
func NewHuggingFaceModel(apiKey, model, baseURL string) *HuggingFaceModel {
	if baseURL == "" {
		baseURL = defaultHuggingFaceBaseURL
	}
	return &HuggingFaceModel{
		client:  &http.Client{},
		model:   model,
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

// Embed generates one embedding vector per input text, preserving order.
func (m *HuggingFaceModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload := map[string]interface{}{
		"inputs":  texts,
		"options": map[string]bool{"wait_for_model": true},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+m.model, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call huggingface api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("huggingface api returned status %s: %s", resp.Status, msg)
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("failed to decode huggingface response: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
	}
	return vectors, nil
}

var _ interfaces.EmbeddingModel = (*HuggingFaceModel)(nil)
