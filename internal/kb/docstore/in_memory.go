// Package docstore implements the chunk registry keyed by document: the
// backing store for document listing and retrieval by ID.
package docstore

import (
	"context"
	"sort"
	"sync"

	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/schema"
)

// InMemoryDocStore is a thread-safe, in-memory DocStore.
type InMemoryDocStore struct {
	mu   sync.RWMutex
	docs map[string]map[int]*schema.Chunk
}

// NewInMemoryDocStore creates an empty InMemoryDocStore.
func NewInMemoryDocStore() *InMemoryDocStore {
	return &InMemoryDocStore{docs: make(map[string]map[int]*schema.Chunk)}
}

// Add registers the chunks under their parent documents, overwriting
// existing entries with the same index.
func (s *InMemoryDocStore) Add(ctx context.Context, chunks []*schema.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		byIndex, ok := s.docs[chunk.DocumentID]
		if !ok {
			byIndex = make(map[int]*schema.Chunk)
			s.docs[chunk.DocumentID] = byIndex
		}
		copied := *chunk
		byIndex[chunk.Index] = &copied
	}
	return nil
}

// GetDocument returns the chunks of a document ordered by index, or an empty
// slice when the document is unknown.
func (s *InMemoryDocStore) GetDocument(ctx context.Context, documentID string) ([]*schema.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byIndex := s.docs[documentID]
	chunks := make([]*schema.Chunk, 0, len(byIndex))
	for _, chunk := range byIndex {
		chunks = append(chunks, chunk)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// DeleteDocument removes every chunk of a document.
func (s *InMemoryDocStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, documentID)
	return nil
}

// DeleteChunks removes the given chunk indices of a document.
func (s *InMemoryDocStore) DeleteChunks(ctx context.Context, documentID string, indices []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byIndex := s.docs[documentID]
	for _, idx := range indices {
		delete(byIndex, idx)
	}
	if len(byIndex) == 0 {
		delete(s.docs, documentID)
	}
	return nil
}

// ListDocuments returns the metadata of every registered document, sorted by
// document ID.
func (s *InMemoryDocStore) ListDocuments(ctx context.Context) ([]schema.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]schema.Metadata, 0, len(ids))
	for _, id := range ids {
		// Any chunk carries the document metadata; take the lowest index.
		var first *schema.Chunk
		for _, chunk := range s.docs[id] {
			if first == nil || chunk.Index < first.Index {
				first = chunk
			}
		}
		if first != nil {
			out = append(out, first.Metadata)
		}
	}
	return out, nil
}

var _ interfaces.DocStore = (*InMemoryDocStore)(nil)
