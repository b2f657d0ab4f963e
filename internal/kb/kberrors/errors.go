// Package kberrors defines the typed errors surfaced by the knowledge-base
// pipeline. Every error carries enough context (document ID, chunk index,
// underlying cause) to retry only the failed unit of work.
package kberrors

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned when a source file has a format the
// extractor cannot handle, or a JSON document is missing its text field.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ErrEmptyQuery is returned when a search query is empty or whitespace-only.
// It is raised before the embedding step so no external call is wasted.
var ErrEmptyQuery = errors.New("query is empty")

// ExtractionError reports an unreadable or corrupt source document.
type ExtractionError struct {
	Path  string
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.Path, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// InvalidConfigError reports a chunk size/overlap combination that would
// produce a non-advancing window.
type InvalidConfigError struct {
	ChunkSize    int
	ChunkOverlap int
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid chunking config: overlap %d must be >= 0 and < chunk size %d",
		e.ChunkOverlap, e.ChunkSize)
}

// EmbeddingError reports an external embedding model failure after the
// bounded retries are exhausted.
type EmbeddingError struct {
	Attempts int
	Cause    error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *EmbeddingError) Unwrap() error { return e.Cause }

// StorageError reports a vector store failure after retries are exhausted.
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("vector store %s failed: %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

// IngestError aggregates a partial ingestion failure for one document. The
// already-stored chunks remain (at-least-once, not transactional); Failed
// lists the chunk indices a retry should be scoped to.
type IngestError struct {
	DocumentID string
	Stage      string
	Succeeded  []int
	Failed     []int
	Cause      error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingestion of document %q failed at stage %s (succeeded chunks: %v, failed chunks: %v): %v",
		e.DocumentID, e.Stage, e.Succeeded, e.Failed, e.Cause)
}

func (e *IngestError) Unwrap() error { return e.Cause }
