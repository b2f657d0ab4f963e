package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-redis/redis/v8"

	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/schema"
)

const (
	// documentSetKey is the set of all registered document IDs.
	documentSetKey = "kb:documents"
	// documentKeyPrefix prefixes the per-document hash of index -> chunk JSON.
	documentKeyPrefix = "kb:doc:"
)

// RedisDocStore is a Redis-backed DocStore. Each document is a hash keyed by
// chunk index, so chunk upserts and partial deletions stay O(1) per chunk.
type RedisDocStore struct {
	rdb *redis.Client
}

// NewRedisDocStore creates a RedisDocStore on top of a connected client.
func NewRedisDocStore(rdb *redis.Client) *RedisDocStore {
	return &RedisDocStore{rdb: rdb}
}

func documentKey(documentID string) string {
	return documentKeyPrefix + documentID
}

// Add registers the chunks under their parent documents.
func (s *RedisDocStore) Add(ctx context.Context, chunks []*schema.Chunk) error {
	pipe := s.rdb.TxPipeline()
	for _, chunk := range chunks {
		payload, err := json.Marshal(chunk)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk %s: %w", chunk.ID, err)
		}
		pipe.HSet(ctx, documentKey(chunk.DocumentID), strconv.Itoa(chunk.Index), payload)
		pipe.SAdd(ctx, documentSetKey, chunk.DocumentID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add chunks to redis: %w", err)
	}
	return nil
}

// GetDocument returns the chunks of a document ordered by index.
func (s *RedisDocStore) GetDocument(ctx context.Context, documentID string) ([]*schema.Chunk, error) {
	fields, err := s.rdb.HGetAll(ctx, documentKey(documentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s from redis: %w", documentID, err)
	}

	chunks := make([]*schema.Chunk, 0, len(fields))
	for _, payload := range fields {
		var chunk schema.Chunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chunk of document %s: %w", documentID, err)
		}
		chunks = append(chunks, &chunk)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// DeleteDocument removes every chunk of a document.
func (s *RedisDocStore) DeleteDocument(ctx context.Context, documentID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, documentKey(documentID))
	pipe.SRem(ctx, documentSetKey, documentID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete document %s from redis: %w", documentID, err)
	}
	return nil
}

// DeleteChunks removes the given chunk indices of a document.
func (s *RedisDocStore) DeleteChunks(ctx context.Context, documentID string, indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	fields := make([]string, len(indices))
	for i, idx := range indices {
		fields[i] = strconv.Itoa(idx)
	}
	if err := s.rdb.HDel(ctx, documentKey(documentID), fields...).Err(); err != nil {
		return fmt.Errorf("failed to delete chunks of document %s from redis: %w", documentID, err)
	}

	remaining, err := s.rdb.HLen(ctx, documentKey(documentID)).Result()
	if err != nil {
		return fmt.Errorf("failed to count chunks of document %s: %w", documentID, err)
	}
	if remaining == 0 {
		return s.rdb.SRem(ctx, documentSetKey, documentID).Err()
	}
	return nil
}

// ListDocuments returns the metadata of every registered document, sorted by
// document ID.
func (s *RedisDocStore) ListDocuments(ctx context.Context) ([]schema.Metadata, error) {
	ids, err := s.rdb.SMembers(ctx, documentSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents from redis: %w", err)
	}
	sort.Strings(ids)

	out := make([]schema.Metadata, 0, len(ids))
	for _, id := range ids {
		chunks, err := s.GetDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(chunks) > 0 {
			out = append(out, chunks[0].Metadata)
		}
	}
	return out, nil
}

var _ interfaces.DocStore = (*RedisDocStore)(nil)
