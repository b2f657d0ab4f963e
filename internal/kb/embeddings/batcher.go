package embeddings

import (
	"context"

	"golang.org/x/sync/errgroup"

	"taxkb/internal/kb/interfaces"
)

// BatchEmbedder fans a large embedding request out in batches issued
// concurrently up to a parallelism cap, bounding external-service load.
// Batch order is preserved when zipping the vectors back together.
type BatchEmbedder struct {
	inner       interfaces.EmbeddingModel
	batchSize   int
	parallelism int
}

// NewBatchEmbedder wraps inner with batched, capped-concurrency embedding.
func NewBatchEmbedder(inner interfaces.EmbeddingModel, batchSize, parallelism int) *BatchEmbedder {
	if batchSize < 1 {
		batchSize = 1
	}
	if parallelism < 1 {
		parallelism = 1
	}
	return &BatchEmbedder{
		inner:       inner,
		batchSize:   batchSize,
		parallelism: parallelism,
	}
}

// Embed generates one embedding vector per input text, preserving order.
func (b *BatchEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	numBatches := (len(texts) + b.batchSize - 1) / b.batchSize
	results := make([][][]float32, numBatches)

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.parallelism)

	for i := 0; i < numBatches; i++ {
		batchIdx := i
		start := i * b.batchSize
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		eg.Go(func() error {
			vectors, err := b.inner.Embed(gCtx, batch)
			if err != nil {
				return err
			}
			results[batchIdx] = vectors
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(texts))
	for _, batch := range results {
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

var _ interfaces.EmbeddingModel = (*BatchEmbedder)(nil)
