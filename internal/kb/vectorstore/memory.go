package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/schema"
)

// MemoryStore is a thread-safe, in-memory VectorStore using brute-force
// cosine similarity. It serves tests and local runs without a Milvus
// deployment; ranking ties break on chunk ID so results are deterministic.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]*schema.Chunk
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[string]*schema.Chunk)}
}

// Upsert stores the chunks, overwriting entries with the same chunk ID.
func (s *MemoryStore) Upsert(ctx context.Context, chunks []*schema.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		copied := *chunk
		s.chunks[chunk.ID] = &copied
	}
	return nil
}

// Query returns the topK most similar chunks, similarity-descending.
func (s *MemoryStore) Query(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]*schema.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*schema.SearchResult
	for _, chunk := range s.chunks {
		if !matchesFilters(chunk, filters) {
			continue
		}
		results = append(results, &schema.SearchResult{
			Chunk: chunk,
			Score: cosineSimilarity(embedding, chunk.Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteChunks removes the chunks with the given IDs.
func (s *MemoryStore) DeleteChunks(ctx context.Context, chunkIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range chunkIDs {
		delete(s.chunks, id)
	}
	return nil
}

// DeleteDocument removes every chunk of a document.
func (s *MemoryStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, chunk := range s.chunks {
		if chunk.DocumentID == documentID {
			delete(s.chunks, id)
		}
	}
	return nil
}

// Len reports the number of stored chunks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Get returns the stored chunk with the given ID, or nil.
func (s *MemoryStore) Get(chunkID string) *schema.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunks[chunkID]
}

func matchesFilters(chunk *schema.Chunk, filters map[string]string) bool {
	for key, want := range filters {
		var got string
		switch key {
		case FieldDocumentID:
			got = chunk.DocumentID
		case FieldDocumentType:
			got = chunk.Metadata.DocumentType
		case FieldJurisdiction:
			got = chunk.Metadata.Jurisdiction
		case FieldSource:
			got = chunk.Metadata.Source
		default:
			return false
		}
		if got != want {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ interfaces.VectorStore = (*MemoryStore)(nil)
