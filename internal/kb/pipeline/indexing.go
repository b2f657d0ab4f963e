// Package pipeline orchestrates the knowledge-base stages: indexing a
// document from extraction through storage, retrieving chunks for a query,
// and generating a grounded answer.
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/kberrors"
	"taxkb/internal/kb/preprocess"
	"taxkb/internal/kb/schema"
	"taxkb/pkg/logger"
)

// Stage names for ingestion progress and error reporting.
const (
	StageExtracted    = "extracted"
	StagePreprocessed = "preprocessed"
	StageChunked      = "chunked"
	StageEmbedded     = "embedded"
	StageStored       = "stored"
)

// storeBatchSize bounds the chunk batches written per storage call, so a
// storage failure is scoped to one batch instead of the whole document.
const storeBatchSize = 64

// IndexingPipeline runs a document through preprocessing, chunking,
// embedding, and storage. Re-ingesting the same document ID overwrites the
// prior chunks and removes any stale tail.
type IndexingPipeline struct {
	preprocessor *preprocess.Preprocessor
	splitter     interfaces.Splitter
	embedder     interfaces.EmbeddingModel
	docStore     interfaces.DocStore
	vectorStore  interfaces.VectorStore
	log          *logger.Logger
}

// NewIndexingPipeline creates a new IndexingPipeline.
func NewIndexingPipeline(
	preprocessor *preprocess.Preprocessor,
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	docStore interfaces.DocStore,
	vectorStore interfaces.VectorStore,
	log *logger.Logger,
) *IndexingPipeline {
	return &IndexingPipeline{
		preprocessor: preprocessor,
		splitter:     splitter,
		embedder:     embedder,
		docStore:     docStore,
		vectorStore:  vectorStore,
		log:          log,
	}
}

// Ingest indexes one document and returns its stored chunks. A document whose
// text normalizes to empty removes any previously stored content under the
// same ID. On a partial storage failure the already-stored chunks remain and
// the returned IngestError lists which chunk indices still need a retry.
func (p *IndexingPipeline) Ingest(ctx context.Context, doc *schema.Document) ([]*schema.Chunk, error) {
	log := p.log.WithField("document_id", doc.ID)
	log.Info("starting ingestion")

	normalized := p.preprocessor.Normalize(doc.Text)
	if normalized == "" {
		log.Warn("document text is empty after preprocessing, removing stored content")
		if err := p.deleteEverywhere(ctx, doc.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	cleaned := *doc
	cleaned.Text = normalized

	chunks, err := p.splitter.Split(ctx, &cleaned)
	if err != nil {
		log.Error(fmt.Sprintf("failed to split document: %v", err))
		return nil, err
	}
	log.Info(fmt.Sprintf("split into %d chunks", len(chunks)))

	// Prior chunk count decides whether a stale tail must be deleted after
	// the overwrite.
	prior, err := p.docStore.GetDocument(ctx, doc.ID)
	if err != nil {
		log.Error(fmt.Sprintf("failed to read prior chunks: %v", err))
		return nil, err
	}

	if err := p.embed(ctx, chunks); err != nil {
		log.Error(fmt.Sprintf("failed to embed chunks: %v", err))
		return nil, &kberrors.IngestError{
			DocumentID: doc.ID,
			Stage:      StageEmbedded,
			Failed:     allIndices(len(chunks)),
			Cause:      err,
		}
	}
	log.Info("embedded all chunks")

	succeeded, failed, storeErr := p.store(ctx, chunks)
	if storeErr != nil {
		log.Error(fmt.Sprintf("failed to store chunks: %v", storeErr))
		return chunks, &kberrors.IngestError{
			DocumentID: doc.ID,
			Stage:      StageStored,
			Succeeded:  succeeded,
			Failed:     failed,
			Cause:      storeErr,
		}
	}

	if err := p.deleteStaleTail(ctx, doc.ID, len(chunks), len(prior)); err != nil {
		return chunks, err
	}

	log.Info(fmt.Sprintf("successfully ingested %d chunks", len(chunks)))
	return chunks, nil
}

// Delete removes a document and all of its chunks from both stores.
func (p *IndexingPipeline) Delete(ctx context.Context, documentID string) error {
	p.log.WithField("document_id", documentID).Info("deleting document")
	return p.deleteEverywhere(ctx, documentID)
}

func (p *IndexingPipeline) embed(ctx context.Context, chunks []*schema.Chunk) error {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}
	for i, chunk := range chunks {
		chunk.Embedding = embeddings[i]
	}
	return nil
}

// store writes the chunks in batches, each batch going to the vector store
// and the doc store concurrently. It reports the chunk indices that were
// stored and those that were not, plus the first error encountered.
func (p *IndexingPipeline) store(ctx context.Context, chunks []*schema.Chunk) (succeeded, failed []int, firstErr error) {
	for start := 0; start < len(chunks); start += storeBatchSize {
		end := start + storeBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		eg, gCtx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			if err := p.vectorStore.Upsert(gCtx, batch); err != nil {
				return &kberrors.StorageError{Op: "upsert", Cause: err}
			}
			return nil
		})
		eg.Go(func() error {
			return p.docStore.Add(gCtx, batch)
		})

		if err := eg.Wait(); err != nil {
			for i := start; i < end; i++ {
				failed = append(failed, i)
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for i := start; i < end; i++ {
			succeeded = append(succeeded, i)
		}
	}
	return succeeded, failed, firstErr
}

// deleteStaleTail removes chunks left over from a prior, longer version of
// the document. Chunk IDs are index-derived, so a shrunk document would
// otherwise keep serving its old tail.
func (p *IndexingPipeline) deleteStaleTail(ctx context.Context, documentID string, newTotal, priorTotal int) error {
	if priorTotal <= newTotal {
		return nil
	}
	staleIDs := make([]string, 0, priorTotal-newTotal)
	staleIndices := make([]int, 0, priorTotal-newTotal)
	for i := newTotal; i < priorTotal; i++ {
		staleIDs = append(staleIDs, schema.ChunkID(documentID, i))
		staleIndices = append(staleIndices, i)
	}

	p.log.WithField("document_id", documentID).
		Info(fmt.Sprintf("deleting %d stale chunks", len(staleIDs)))
	if err := p.vectorStore.DeleteChunks(ctx, staleIDs); err != nil {
		return &kberrors.StorageError{Op: "delete stale chunks", Cause: err}
	}
	return p.docStore.DeleteChunks(ctx, documentID, staleIndices)
}

func (p *IndexingPipeline) deleteEverywhere(ctx context.Context, documentID string) error {
	if err := p.vectorStore.DeleteDocument(ctx, documentID); err != nil {
		return &kberrors.StorageError{Op: "delete document", Cause: err}
	}
	return p.docStore.DeleteDocument(ctx, documentID)
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
