// Package vectorstore implements the vector store adapters: a Milvus-backed
// store for normal operation and an in-memory brute-force store for tests
// and local runs.
package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"taxkb/internal/database/milvus"
	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/kberrors"
	"taxkb/internal/kb/schema"
	"taxkb/pkg/logger"
)

// Column names of the knowledge-base collection. The configured collection
// schema must define these fields.
const (
	FieldChunkID         = "chunk_id"
	FieldDocumentID      = "document_id"
	FieldChunkIndex      = "chunk_index"
	FieldChunkTotal      = "chunk_total"
	FieldText            = "text"
	FieldChunkPreview    = "chunk_content_preview"
	FieldTitle           = "title"
	FieldSource          = "source"
	FieldDocumentType    = "document_type"
	FieldJurisdiction    = "jurisdiction"
	FieldPublicationDate = "publication_date"
	FieldURL             = "url"
	FieldEmbedding       = "embedding"
)

// queryOutputFields are the columns returned by similarity search; they are
// what a citation needs.
var queryOutputFields = []string{
	FieldChunkID, FieldDocumentID, FieldChunkIndex, FieldChunkTotal,
	FieldText, FieldChunkPreview, FieldTitle, FieldSource,
	FieldDocumentType, FieldJurisdiction, FieldPublicationDate, FieldURL,
}

// filterableFields lists the metadata keys accepted in a search filter.
var filterableFields = map[string]bool{
	FieldDocumentID:   true,
	FieldDocumentType: true,
	FieldJurisdiction: true,
	FieldSource:       true,
}

// MilvusStore adapts the Milvus client to the VectorStore interface. Upserts
// have overwrite semantics keyed by chunk ID: existing rows with the same IDs
// are deleted before the insert, so re-ingestion never duplicates chunks.
type MilvusStore struct {
	log        *logger.Logger
	client     client.Client
	collection string
	metricType string
	indexType  string
}

// NewMilvusStore creates a MilvusStore on top of an initialized client handle.
func NewMilvusStore(mc *milvus.Client, log *logger.Logger) (*MilvusStore, error) {
	if mc == nil || mc.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	return &MilvusStore{
		log:        log,
		client:     mc.Client,
		collection: mc.Config.Schema.CollectionName,
		metricType: mc.Config.Schema.Index.MetricType,
		indexType:  mc.Config.Schema.Index.IndexType,
	}, nil
}

// Upsert stores the chunks, overwriting any rows with the same chunk IDs.
func (s *MilvusStore) Upsert(ctx context.Context, chunks []*schema.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	docIDs := make([]string, len(chunks))
	indices := make([]int64, len(chunks))
	totals := make([]int64, len(chunks))
	texts := make([]string, len(chunks))
	previews := make([]string, len(chunks))
	titles := make([]string, len(chunks))
	sources := make([]string, len(chunks))
	docTypes := make([]string, len(chunks))
	jurisdictions := make([]string, len(chunks))
	pubDates := make([]string, len(chunks))
	urls := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))

	dim := 0
	for i, chunk := range chunks {
		ids[i] = chunk.ID
		docIDs[i] = chunk.DocumentID
		indices[i] = int64(chunk.Index)
		totals[i] = int64(chunk.Total)
		texts[i] = chunk.Text
		previews[i] = chunk.Metadata.ChunkPreview
		if previews[i] == "" {
			previews[i] = chunk.Preview()
		}
		titles[i] = chunk.Metadata.Title
		sources[i] = chunk.Metadata.Source
		docTypes[i] = chunk.Metadata.DocumentType
		jurisdictions[i] = chunk.Metadata.Jurisdiction
		pubDates[i] = chunk.Metadata.PublicationDate
		urls[i] = chunk.Metadata.URL
		embeddings[i] = chunk.Embedding
		if len(chunk.Embedding) > dim {
			dim = len(chunk.Embedding)
		}
	}

	// Delete-then-insert gives overwrite semantics keyed by chunk_id.
	if err := s.DeleteChunks(ctx, ids); err != nil {
		return err
	}

	cols := []entity.Column{
		entity.NewColumnVarChar(FieldChunkID, ids),
		entity.NewColumnVarChar(FieldDocumentID, docIDs),
		entity.NewColumnInt64(FieldChunkIndex, indices),
		entity.NewColumnInt64(FieldChunkTotal, totals),
		entity.NewColumnVarChar(FieldText, texts),
		entity.NewColumnVarChar(FieldChunkPreview, previews),
		entity.NewColumnVarChar(FieldTitle, titles),
		entity.NewColumnVarChar(FieldSource, sources),
		entity.NewColumnVarChar(FieldDocumentType, docTypes),
		entity.NewColumnVarChar(FieldJurisdiction, jurisdictions),
		entity.NewColumnVarChar(FieldPublicationDate, pubDates),
		entity.NewColumnVarChar(FieldURL, urls),
		entity.NewColumnFloatVector(FieldEmbedding, dim, embeddings),
	}

	s.log.Info(fmt.Sprintf("Inserting %d chunks into Milvus collection %q", len(chunks), s.collection))
	if _, err := s.client.Insert(ctx, s.collection, "" /* default partition */, cols...); err != nil {
		return &kberrors.StorageError{Op: "upsert", Cause: err}
	}
	return nil
}

// Query performs a similarity search with an optional metadata filter and
// returns results ordered by descending similarity.
func (s *MilvusStore) Query(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]*schema.SearchResult, error) {
	filterExpr, err := buildFilterExpression(filters)
	if err != nil {
		return nil, err
	}

	sp := searchParamFor(s.indexType)
	searchResults, err := s.client.Search(
		ctx, s.collection, []string{}, filterExpr, queryOutputFields,
		[]entity.Vector{entity.FloatVector(embedding)},
		FieldEmbedding, entity.MetricType(s.metricType), topK, sp,
	)
	if err != nil {
		return nil, &kberrors.StorageError{Op: "query", Cause: err}
	}

	var results []*schema.SearchResult
	for _, res := range searchResults {
		strCol := func(name string) []string {
			for _, field := range res.Fields {
				if field.Name() == name {
					if col, ok := field.(*entity.ColumnVarChar); ok {
						return col.Data()
					}
				}
			}
			return nil
		}
		intCol := func(name string) []int64 {
			for _, field := range res.Fields {
				if field.Name() == name {
					if col, ok := field.(*entity.ColumnInt64); ok {
						return col.Data()
					}
				}
			}
			return nil
		}

		chunkIDs := strCol(FieldChunkID)
		docIDs := strCol(FieldDocumentID)
		texts := strCol(FieldText)
		previews := strCol(FieldChunkPreview)
		titles := strCol(FieldTitle)
		sources := strCol(FieldSource)
		docTypes := strCol(FieldDocumentType)
		jurisdictions := strCol(FieldJurisdiction)
		pubDates := strCol(FieldPublicationDate)
		urls := strCol(FieldURL)
		indices := intCol(FieldChunkIndex)
		totals := intCol(FieldChunkTotal)
		if chunkIDs == nil {
			s.log.Warn("Search result is missing the chunk_id column, skipping")
			continue
		}

		for i := 0; i < res.ResultCount; i++ {
			chunk := &schema.Chunk{ID: chunkIDs[i]}
			if docIDs != nil {
				chunk.DocumentID = docIDs[i]
			}
			if texts != nil {
				chunk.Text = texts[i]
			}
			if indices != nil {
				chunk.Index = int(indices[i])
			}
			if totals != nil {
				chunk.Total = int(totals[i])
			}
			chunk.Metadata = schema.Metadata{DocumentID: chunk.DocumentID}
			if previews != nil {
				chunk.Metadata.ChunkPreview = previews[i]
			}
			if titles != nil {
				chunk.Metadata.Title = titles[i]
			}
			if sources != nil {
				chunk.Metadata.Source = sources[i]
			}
			if docTypes != nil {
				chunk.Metadata.DocumentType = docTypes[i]
			}
			if jurisdictions != nil {
				chunk.Metadata.Jurisdiction = jurisdictions[i]
			}
			if pubDates != nil {
				chunk.Metadata.PublicationDate = pubDates[i]
			}
			if urls != nil {
				chunk.Metadata.URL = urls[i]
			}

			results = append(results, &schema.SearchResult{
				Chunk: chunk,
				Score: s.similarity(res.Scores[i]),
			})
		}
	}

	return results, nil
}

// DeleteChunks removes the rows with the given chunk IDs.
func (s *MilvusStore) DeleteChunks(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	expr := fmt.Sprintf("%s in [%s]", FieldChunkID, quoteList(chunkIDs))
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return &kberrors.StorageError{Op: "delete", Cause: err}
	}
	return nil
}

// DeleteDocument removes every chunk of a document.
func (s *MilvusStore) DeleteDocument(ctx context.Context, documentID string) error {
	expr := fmt.Sprintf(`%s == "%s"`, FieldDocumentID, escapeQuotes(documentID))
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return &kberrors.StorageError{Op: "delete", Cause: err}
	}
	return nil
}

// similarity converts a raw Milvus score into a descending-is-better
// similarity. For L2 the raw score is a distance, so it is inverted.
func (s *MilvusStore) similarity(raw float32) float32 {
	if s.metricType == "L2" {
		return 1 / (1 + raw)
	}
	return raw
}

// searchParamFor builds search parameters matching the index type the
// collection was created with; Milvus ignores or rejects parameters meant for
// a different index.
func searchParamFor(indexType string) entity.SearchParam {
	switch indexType {
	case "HNSW":
		sp, _ := entity.NewIndexHNSWSearchParam(64)
		return sp
	case "AUTOINDEX":
		sp, _ := entity.NewIndexAUTOINDEXSearchParam(1)
		return sp
	default:
		sp, _ := entity.NewIndexIvfFlatSearchParam(10)
		return sp
	}
}

// buildFilterExpression creates a Milvus boolean expression from a metadata
// filter map, accepting only the filterable columns.
func buildFilterExpression(filters map[string]string) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}
	conditions := make([]string, 0, len(filters))
	for key, value := range filters {
		if !filterableFields[key] {
			return "", fmt.Errorf("metadata filter key %q is not filterable", key)
		}
		conditions = append(conditions, fmt.Sprintf(`%s == "%s"`, key, escapeQuotes(value)))
	}
	return strings.Join(conditions, " and "), nil
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

var _ interfaces.VectorStore = (*MilvusStore)(nil)
