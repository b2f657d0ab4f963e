// Package rerankers provides optional second-stage ranking of retrieved
// chunks.
package rerankers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/schema"
)

const cohereRerankURL = "https://api.cohere.ai/v1/rerank"

// CohereReranker re-scores retrieved chunks with the Cohere Rerank API.
type CohereReranker struct {
	apiKey     string
	httpClient *http.Client
	model      string
	topN       int
}

type cohereRerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n"`
	ReturnDocuments bool     `json:"return_documents"`
}

type cohereRerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type cohereRerankResponse struct {
	Results []cohereRerankResult `json:"results"`
}

// NewCohereReranker creates a new CohereReranker. topN caps the number of
// results returned after reranking.
func NewCohereReranker(apiKey, model string, topN int) *CohereReranker {
	return &CohereReranker{
		apiKey:     apiKey,
		httpClient: &http.Client{},
		model:      model,
		topN:       topN,
	}
}

// Rerank re-orders the results by relevance score from the Cohere API. The
// returned scores replace the vector-similarity scores.
func (r *CohereReranker) Rerank(ctx context.Context, query string, results []*schema.SearchResult) ([]*schema.SearchResult, error) {
	if len(results) == 0 {
		return results, nil
	}

	docTexts := make([]string, len(results))
	for i, res := range results {
		docTexts[i] = res.Chunk.Text
	}

	topN := r.topN
	if topN <= 0 || topN > len(results) {
		topN = len(results)
	}
	reqBody := cohereRerankRequest{
		Model:           r.model,
		Query:           query,
		Documents:       docTexts,
		TopN:            topN,
		ReturnDocuments: false,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cohere request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cohereRerankURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create cohere request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call cohere api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cohere api returned non-200 status: %s", resp.Status)
	}

	var cohereResp cohereRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&cohereResp); err != nil {
		return nil, fmt.Errorf("failed to decode cohere response: %w", err)
	}

	reranked := make([]*schema.SearchResult, 0, len(cohereResp.Results))
	for _, result := range cohereResp.Results {
		if result.Index < 0 || result.Index >= len(results) {
			continue
		}
		reranked = append(reranked, &schema.SearchResult{
			Chunk: results[result.Index].Chunk,
			Score: float32(result.RelevanceScore),
		})
	}

	sort.Slice(reranked, func(i, j int) bool {
		if reranked[i].Score != reranked[j].Score {
			return reranked[i].Score > reranked[j].Score
		}
		return reranked[i].Chunk.ID < reranked[j].Chunk.ID
	})
	return reranked, nil
}

var _ interfaces.Reranker = (*CohereReranker)(nil)
