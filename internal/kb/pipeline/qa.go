package pipeline

import (
	"context"
	"fmt"
	"strings"

	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/schema"
	"taxkb/pkg/logger"
)

// noContextAnswer is returned without an LLM call when retrieval found
// nothing to ground an answer on.
const noContextAnswer = "I could not find relevant information in the knowledge base to answer this question."

// Citation points an answer back at a source passage.
type Citation struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Title      string  `json:"title,omitempty"`
	Source     string  `json:"source,omitempty"`
	URL        string  `json:"url,omitempty"`
	Score      float32 `json:"score"`
}

// Answer is a generated answer with the citations it was grounded on.
// Confidence is derived from the top retrieval score and is a rough signal,
// not a calibrated probability.
type Answer struct {
	Text       string     `json:"text"`
	Citations  []Citation `json:"citations"`
	Confidence float32    `json:"confidence"`
}

// QAPipeline turns retrieved chunks into a generated, cited answer.
type QAPipeline struct {
	llm interfaces.LLM
	log *logger.Logger
}

// NewQAPipeline creates a new QAPipeline.
func NewQAPipeline(llm interfaces.LLM, log *logger.Logger) *QAPipeline {
	return &QAPipeline{llm: llm, log: log}
}

// Run builds a prompt from the query and the retrieved chunks and calls the
// LLM. With no retrieved chunks it short-circuits to a fixed answer.
func (p *QAPipeline) Run(ctx context.Context, query string, results []*schema.SearchResult) (*Answer, error) {
	if len(results) == 0 {
		return &Answer{Text: noContextAnswer, Citations: []Citation{}}, nil
	}

	prompt := p.buildPrompt(query, results)
	p.log.Info(fmt.Sprintf("generating answer from %d context passages", len(results)))

	text, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		p.log.Error(fmt.Sprintf("llm failed to generate answer: %v", err))
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &Answer{
		Text:       text,
		Citations:  citationsFrom(results),
		Confidence: confidenceFrom(results),
	}, nil
}

// buildPrompt lays out the retrieved passages with their provenance so the
// model can cite them by number.
func (p *QAPipeline) buildPrompt(query string, results []*schema.SearchResult) string {
	var sb strings.Builder

	sb.WriteString("Based on the following context, please answer the question.\n\nContext:\n")
	for i, res := range results {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("Passage %d", i+1))
		if title := res.Chunk.Metadata.Title; title != "" {
			sb.WriteString(fmt.Sprintf(" (%s", title))
			if source := res.Chunk.Metadata.Source; source != "" {
				sb.WriteString(", " + source)
			}
			sb.WriteString(")")
		}
		sb.WriteString(":\n")
		sb.WriteString(res.Chunk.Text)
		sb.WriteString("\n")
	}
	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("Question: %s", query))

	return sb.String()
}

func citationsFrom(results []*schema.SearchResult) []Citation {
	citations := make([]Citation, 0, len(results))
	for _, res := range results {
		citations = append(citations, Citation{
			DocumentID: res.Chunk.DocumentID,
			ChunkID:    res.Chunk.ID,
			Title:      res.Chunk.Metadata.Title,
			Source:     res.Chunk.Metadata.Source,
			URL:        res.Chunk.Metadata.URL,
			Score:      res.Score,
		})
	}
	return citations
}

// confidenceFrom clamps the top retrieval score into [0, 1].
func confidenceFrom(results []*schema.SearchResult) float32 {
	top := results[0].Score
	if top < 0 {
		return 0
	}
	if top > 1 {
		return 1
	}
	return top
}
