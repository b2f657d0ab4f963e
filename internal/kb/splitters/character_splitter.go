// Package splitters implements the chunking stage: splitting normalized text
// into overlapping fixed-size passages tagged with sequence metadata.
package splitters

import (
	"context"

	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/kberrors"
	"taxkb/internal/kb/schema"
)

// boundaryLookback is how far back from the window end the splitter searches
// for a sentence or paragraph break before falling back to a hard cut.
const boundaryLookback = 100

// CharacterSplitter splits text into windows of ChunkSize runes, advancing by
// ChunkSize-ChunkOverlap per step. Chunk boundaries prefer sentence and
// paragraph breaks near the target size; the size bound is never exceeded.
type CharacterSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewCharacterSplitter creates a CharacterSplitter, rejecting size/overlap
// combinations that would produce a non-advancing window.
func NewCharacterSplitter(chunkSize, chunkOverlap int) (*CharacterSplitter, error) {
	if chunkSize <= 0 || chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, &kberrors.InvalidConfigError{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
	}
	return &CharacterSplitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}, nil
}

// Split produces the ordered chunk sequence for a document. A document with
// non-empty normalized text always yields at least one chunk; every chunk is
// stamped with its index, the chunk total, a content preview, and a
// deterministic ID derived from the document ID and index.
func (s *CharacterSplitter) Split(ctx context.Context, doc *schema.Document) ([]*schema.Chunk, error) {
	text := []rune(doc.Text)
	if len(text) == 0 {
		return nil, nil
	}

	var chunks []*schema.Chunk
	start := 0
	for start < len(text) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + s.ChunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = adjustToBoundary(text, start, end)
		}

		chunks = append(chunks, &schema.Chunk{
			ID:         schema.ChunkID(doc.ID, len(chunks)),
			DocumentID: doc.ID,
			Index:      len(chunks),
			Text:       string(text[start:end]),
			Start:      start,
			End:        end,
			Metadata:   doc.Metadata,
		})

		if end == len(text) {
			break
		}
		next := end - s.ChunkOverlap
		if next <= start {
			// The boundary adjustment shrank the window below the overlap;
			// advance without overlap to guarantee progress.
			next = end
		}
		start = next
	}

	for _, chunk := range chunks {
		chunk.Total = len(chunks)
		chunk.Metadata.ChunkPreview = chunk.Preview()
	}
	return chunks, nil
}

// adjustToBoundary moves the window end backwards to the nearest sentence or
// paragraph break within the lookback range. The hard cut at end stands when
// no break is found.
func adjustToBoundary(text []rune, start, end int) int {
	limit := end - boundaryLookback
	if limit < start+1 {
		limit = start + 1
	}
	for i := end; i > limit; i-- {
		if text[i-1] == '.' && (text[i] == ' ' || text[i] == '\n') {
			return i
		}
		if text[i-1] == '\n' && text[i] == '\n' {
			return i - 1
		}
	}
	return end
}

var _ interfaces.Splitter = (*CharacterSplitter)(nil)
