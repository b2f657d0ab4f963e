// Package interfaces declares the component contracts of the knowledge-base
// pipeline. The pipeline and facade depend only on these, so every external
// collaborator (embedding model, vector database, LLM) stays swappable.
package interfaces

import (
	"context"

	"taxkb/internal/kb/schema"
)

// Loader converts a source file into a Document: the raw text plus the base
// metadata that could be extracted from the file itself.
type Loader interface {
	Load(ctx context.Context, path string) (*schema.Document, error)
}

// Splitter splits a document's normalized text into an ordered sequence of
// chunks covering the full text.
type Splitter interface {
	Split(ctx context.Context, doc *schema.Document) ([]*schema.Chunk, error)
}

// EmbeddingModel is the boundary to an external text embedding model.
// Embed must preserve input order and be deterministic for a fixed model
// version.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the boundary to an external vector database. Upsert has
// overwrite semantics keyed by chunk ID and is idempotent; Query returns
// results ordered by descending similarity.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []*schema.Chunk) error
	Query(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]*schema.SearchResult, error)
	DeleteChunks(ctx context.Context, chunkIDs []string) error
	DeleteDocument(ctx context.Context, documentID string) error
}

// DocStore is the registry of ingested chunks keyed by document. It backs
// document listing and retrieval by ID, concerns the vector store does not
// serve well.
type DocStore interface {
	Add(ctx context.Context, chunks []*schema.Chunk) error
	GetDocument(ctx context.Context, documentID string) ([]*schema.Chunk, error)
	DeleteDocument(ctx context.Context, documentID string) error
	DeleteChunks(ctx context.Context, documentID string, indices []int) error
	ListDocuments(ctx context.Context) ([]schema.Metadata, error)
}

// Reranker re-orders retrieved results to improve relevance. Optional; the
// retrieval pipeline works without one.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []*schema.SearchResult) ([]*schema.SearchResult, error)
}

// LLM is the boundary to a hosted large language model used to generate the
// final answer from the query and the retrieved passages.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
