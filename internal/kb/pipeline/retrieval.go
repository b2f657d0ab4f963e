package pipeline

import (
	"context"
	"fmt"
	"strings"

	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/kberrors"
	"taxkb/internal/kb/schema"
	"taxkb/pkg/logger"
)

// RetrievalPipeline answers a query with the most relevant stored chunks:
// embed the query, search the vector store, optionally rerank.
type RetrievalPipeline struct {
	embedder    interfaces.EmbeddingModel
	vectorStore interfaces.VectorStore
	reranker    interfaces.Reranker
	log         *logger.Logger
}

// NewRetrievalPipeline creates a new RetrievalPipeline. The reranker is
// optional and can be nil.
func NewRetrievalPipeline(
	embedder interfaces.EmbeddingModel,
	vectorStore interfaces.VectorStore,
	reranker interfaces.Reranker,
	log *logger.Logger,
) *RetrievalPipeline {
	return &RetrievalPipeline{
		embedder:    embedder,
		vectorStore: vectorStore,
		reranker:    reranker,
		log:         log,
	}
}

// Run retrieves the topK most relevant chunks for the query, filtered by the
// given metadata filters. An empty or whitespace-only query is rejected
// before any embedding call is made.
func (p *RetrievalPipeline) Run(ctx context.Context, query string, topK int, filters map[string]string) ([]*schema.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, kberrors.ErrEmptyQuery
	}
	p.log.Info(fmt.Sprintf("starting retrieval for query of length %d", len(query)))

	embeddings, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		p.log.Error(fmt.Sprintf("failed to embed query: %v", err))
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}

	results, err := p.vectorStore.Query(ctx, embeddings[0], topK, filters)
	if err != nil {
		p.log.Error(fmt.Sprintf("failed to query vector store: %v", err))
		return nil, &kberrors.StorageError{Op: "query", Cause: err}
	}
	if len(results) == 0 {
		p.log.Info("no chunks matched the query")
		return []*schema.SearchResult{}, nil
	}
	p.log.Info(fmt.Sprintf("retrieved %d candidate chunks", len(results)))

	if p.reranker != nil {
		reranked, err := p.reranker.Rerank(ctx, query, results)
		if err != nil {
			p.log.Warn(fmt.Sprintf("reranker failed, returning results without reranking: %v", err))
		} else {
			results = reranked
		}
	}
	return results, nil
}
