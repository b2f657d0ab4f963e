package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taxkb/internal/kb"
	"taxkb/internal/kb/kberrors"
	"taxkb/internal/kb/schema"
	"taxkb/internal/kb/vectorstore"
	"taxkb/pkg/logger"
)

// Handler bundles the knowledge-base API endpoint handlers.
type Handler struct {
	kb  *kb.KnowledgeBase
	log *logger.Logger
}

// NewHandler creates a new Handler.
func NewHandler(knowledgeBase *kb.KnowledgeBase, log *logger.Logger) *Handler {
	return &Handler{kb: knowledgeBase, log: log}
}

// IngestRequest is the JSON body of a single-document ingestion.
type IngestRequest struct {
	Path     string                 `json:"path" binding:"required"`
	Metadata map[string]interface{} `json:"metadata"`
}

// IngestDocument handles POST /api/v1/documents.
func (h *Handler) IngestDocument(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.kb.AddDocument(c.Request.Context(), req.Path, schema.MetadataFromMap(req.Metadata))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// BatchIngestRequest is the JSON body of a directory ingestion.
type BatchIngestRequest struct {
	Directory string `json:"directory" binding:"required"`
}

// IngestBatch handles POST /api/v1/documents/batch.
func (h *Handler) IngestBatch(c *gin.Context) {
	var req BatchIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.kb.BatchAddDocuments(c.Request.Context(), req.Directory)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// SearchResultResponse is one retrieved chunk in an API response.
type SearchResultResponse struct {
	ChunkID    string          `json:"chunk_id"`
	DocumentID string          `json:"document_id"`
	Text       string          `json:"text"`
	Score      float32         `json:"score"`
	Metadata   schema.Metadata `json:"metadata"`
}

// Search handles GET /api/v1/search.
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	topK := 0
	if raw := c.Query("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top_k must be an integer"})
			return
		}
		topK = parsed
	}

	results, err := h.kb.Search(c.Request.Context(), query, topK, queryFilters(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": toResponses(results)})
}

// QueryRequest is the JSON body of an answer-generation request.
type QueryRequest struct {
	Query   string            `json:"query" binding:"required"`
	TopK    int               `json:"top_k"`
	Filters map[string]string `json:"filters"`
}

// Query handles POST /api/v1/query: retrieval plus answer generation.
func (h *Handler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.kb.Ask(c.Request.Context(), req.Query, req.TopK, req.Filters)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// ListDocuments handles GET /api/v1/documents.
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.kb.ListDocuments(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// GetDocument handles GET /api/v1/documents/:id.
func (h *Handler) GetDocument(c *gin.Context) {
	documentID := c.Param("id")
	chunks, err := h.kb.GetDocument(c.Request.Context(), documentID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	if len(chunks) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"document_id": documentID, "chunks": chunks})
}

// DeleteDocument handles DELETE /api/v1/documents/:id.
func (h *Handler) DeleteDocument(c *gin.Context) {
	documentID := c.Param("id")
	if err := h.kb.DeleteDocument(c.Request.Context(), documentID); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document_id": documentID, "deleted": true})
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// renderError maps pipeline errors onto HTTP status codes.
func (h *Handler) renderError(c *gin.Context, err error) {
	var extractionErr *kberrors.ExtractionError
	switch {
	case errors.Is(err, kberrors.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, kberrors.ErrUnsupportedFormat):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.As(err, &extractionErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.log.Error(err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// queryFilters extracts the supported metadata filters from query parameters.
func queryFilters(c *gin.Context) map[string]string {
	filters := make(map[string]string)
	for _, key := range []string{
		vectorstore.FieldDocumentID,
		vectorstore.FieldDocumentType,
		vectorstore.FieldJurisdiction,
		vectorstore.FieldSource,
	} {
		if value := c.Query(key); value != "" {
			filters[key] = value
		}
	}
	if len(filters) == 0 {
		return nil
	}
	return filters
}

func toResponses(results []*schema.SearchResult) []SearchResultResponse {
	out := make([]SearchResultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, SearchResultResponse{
			ChunkID:    res.Chunk.ID,
			DocumentID: res.Chunk.DocumentID,
			Text:       res.Chunk.Text,
			Score:      res.Score,
			Metadata:   res.Chunk.Metadata,
		})
	}
	return out
}
