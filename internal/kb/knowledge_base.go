// Package kb assembles the knowledge-base pipelines behind a single facade
// used by the HTTP service and the CLI.
package kb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"taxkb/internal/collector"
	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/kberrors"
	"taxkb/internal/kb/loaders"
	"taxkb/internal/kb/pipeline"
	"taxkb/internal/kb/schema"
	"taxkb/pkg/logger"
)

// IngestResult reports one successfully ingested document.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
}

// BatchFailure records one file that could not be ingested.
type BatchFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// BatchReport aggregates a directory ingestion. A failed file never aborts
// the batch.
type BatchReport struct {
	Succeeded []IngestResult `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
	Skipped   []string       `json:"skipped,omitempty"`
}

// KnowledgeBase is the facade over indexing, retrieval, and answer
// generation.
type KnowledgeBase struct {
	indexing  *pipeline.IndexingPipeline
	retrieval *pipeline.RetrievalPipeline
	qa        *pipeline.QAPipeline
	docStore  interfaces.DocStore
	topK      int
	log       *logger.Logger
}

// NewKnowledgeBase creates a KnowledgeBase. defaultTopK applies when a caller
// passes topK <= 0; the QA pipeline may be nil when answer generation is not
// configured.
func NewKnowledgeBase(
	indexing *pipeline.IndexingPipeline,
	retrieval *pipeline.RetrievalPipeline,
	qa *pipeline.QAPipeline,
	docStore interfaces.DocStore,
	defaultTopK int,
	log *logger.Logger,
) *KnowledgeBase {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &KnowledgeBase{
		indexing:  indexing,
		retrieval: retrieval,
		qa:        qa,
		docStore:  docStore,
		topK:      defaultTopK,
		log:       log,
	}
}

// AddDocument extracts, indexes, and stores a single file. extra overrides
// the metadata the loader derived from the file.
func (k *KnowledgeBase) AddDocument(ctx context.Context, path string, extra schema.Metadata) (*IngestResult, error) {
	loader, err := loaders.ForPath(path)
	if err != nil {
		return nil, err
	}

	doc, err := loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	// A sidecar written by the collector supplies richer metadata than the
	// file itself; explicit caller metadata still wins.
	if sidecar, ok, err := collector.ReadSidecar(path); err != nil {
		k.log.Warn(fmt.Sprintf("ignoring unreadable metadata sidecar for %s: %v", path, err))
	} else if ok {
		doc.Metadata = doc.Metadata.Merge(sidecar)
	}
	doc.Metadata = doc.Metadata.Merge(extra)

	// The most specific document ID wins: caller over sidecar over the one
	// the loader derived from the file name.
	if doc.Metadata.DocumentID != "" {
		doc.ID = doc.Metadata.DocumentID
	} else {
		doc.Metadata.DocumentID = doc.ID
	}

	chunks, err := k.indexing.Ingest(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &IngestResult{DocumentID: doc.ID, ChunkCount: len(chunks)}, nil
}

// BatchAddDocuments walks a directory recursively and ingests every supported
// file. Unsupported formats are skipped; any other per-file failure is
// recorded and the batch continues.
func (k *KnowledgeBase) BatchAddDocuments(ctx context.Context, dir string) (*BatchReport, error) {
	report := &BatchReport{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".meta.json") {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := k.AddDocument(ctx, path, schema.Metadata{})
		switch {
		case errors.Is(err, kberrors.ErrUnsupportedFormat):
			report.Skipped = append(report.Skipped, path)
		case err != nil:
			k.log.Warn(fmt.Sprintf("failed to ingest %s: %v", path, err))
			report.Failed = append(report.Failed, BatchFailure{Path: path, Error: err.Error()})
		default:
			report.Succeeded = append(report.Succeeded, *result)
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to walk directory %s: %w", dir, err)
	}

	k.log.Info(fmt.Sprintf("batch ingestion finished: %d succeeded, %d failed, %d skipped",
		len(report.Succeeded), len(report.Failed), len(report.Skipped)))
	return report, nil
}

// Search returns the most relevant chunks for the query. topK <= 0 uses the
// configured default.
func (k *KnowledgeBase) Search(ctx context.Context, query string, topK int, filters map[string]string) ([]*schema.SearchResult, error) {
	if topK <= 0 {
		topK = k.topK
	}
	return k.retrieval.Run(ctx, query, topK, filters)
}

// Ask retrieves context for the query and generates a cited answer.
func (k *KnowledgeBase) Ask(ctx context.Context, query string, topK int, filters map[string]string) (*pipeline.Answer, error) {
	if k.qa == nil {
		return nil, fmt.Errorf("answer generation is not configured")
	}
	results, err := k.Search(ctx, query, topK, filters)
	if err != nil {
		return nil, err
	}
	return k.qa.Run(ctx, query, results)
}

// GetDocument returns the stored chunks of a document, ordered by index.
func (k *KnowledgeBase) GetDocument(ctx context.Context, documentID string) ([]*schema.Chunk, error) {
	return k.docStore.GetDocument(ctx, documentID)
}

// DeleteDocument removes a document and its chunks from every store.
func (k *KnowledgeBase) DeleteDocument(ctx context.Context, documentID string) error {
	return k.indexing.Delete(ctx, documentID)
}

// ListDocuments returns the metadata of every ingested document.
func (k *KnowledgeBase) ListDocuments(ctx context.Context) ([]schema.Metadata, error) {
	return k.docStore.ListDocuments(ctx)
}
