package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxkb/internal/kb"
	"taxkb/internal/kb/docstore"
	"taxkb/internal/kb/pipeline"
	"taxkb/internal/kb/preprocess"
	"taxkb/internal/kb/splitters"
	"taxkb/internal/kb/vectorstore"
	"taxkb/pkg/logger"
)

// fixedEmbedder returns a constant vector per text so the store always has
// something to rank.
type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0.5}
	}
	return vectors, nil
}

type stubLLM struct{}

func (stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return "stub answer", nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Init("error")
	log := logger.New("api-test")

	splitter, err := splitters.NewCharacterSplitter(300, 50)
	require.NoError(t, err)
	vs := vectorstore.NewMemoryStore()
	ds := docstore.NewInMemoryDocStore()
	embedder := fixedEmbedder{}

	indexing := pipeline.NewIndexingPipeline(preprocess.NewPreprocessor(), splitter, embedder, ds, vs, log)
	retrieval := pipeline.NewRetrievalPipeline(embedder, vs, nil, log)
	qa := pipeline.NewQAPipeline(stubLLM{}, log)
	knowledgeBase := kb.NewKnowledgeBase(indexing, retrieval, qa, ds, 5, log)

	return SetupRouter(NewHandler(knowledgeBase, log), log)
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func doJSON(router *gin.Engine, method, target string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestIngestAndGetDocument(t *testing.T) {
	router := newTestRouter(t)
	dir := t.TempDir()
	path := writeDoc(t, dir, "notice.txt", "Taxpayers may deduct qualifying business expenses.")

	w := doJSON(router, http.MethodPost, "/api/v1/documents", IngestRequest{
		Path:     path,
		Metadata: map[string]interface{}{"jurisdiction": "Federal"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result kb.IngestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "notice.txt", result.DocumentID)
	assert.Equal(t, 1, result.ChunkCount)

	w = doJSON(router, http.MethodGet, "/api/v1/documents/notice.txt", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Federal")
}

func TestIngestMissingBody(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodPost, "/api/v1/documents", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestUnsupportedFormat(t *testing.T) {
	router := newTestRouter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, 0o644))

	w := doJSON(router, http.MethodPost, "/api/v1/documents", IngestRequest{Path: path})
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestSearchEmptyQuery(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodGet, "/api/v1/search?q=", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchInvalidTopK(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodGet, "/api/v1/search?q=deduction&top_k=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchReturnsResults(t *testing.T) {
	router := newTestRouter(t)
	dir := t.TempDir()
	path := writeDoc(t, dir, "pub535.txt", "Section 179 deduction limits for business property.")

	w := doJSON(router, http.MethodPost, "/api/v1/documents", IngestRequest{Path: path})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/search?q=section+179&top_k=3", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []SearchResultResponse `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "pub535.txt", resp.Results[0].DocumentID)
}

func TestQueryEndpoint(t *testing.T) {
	router := newTestRouter(t)
	dir := t.TempDir()
	path := writeDoc(t, dir, "pub535.txt", "Section 179 deduction limits for business property.")
	w := doJSON(router, http.MethodPost, "/api/v1/documents", IngestRequest{Path: path})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/query", QueryRequest{Query: "section 179 limits"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var answer pipeline.Answer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answer))
	assert.Equal(t, "stub answer", answer.Text)
	assert.NotEmpty(t, answer.Citations)
}

func TestListAndDeleteDocument(t *testing.T) {
	router := newTestRouter(t)
	dir := t.TempDir()
	path := writeDoc(t, dir, "notice.txt", "Some guidance text.")
	w := doJSON(router, http.MethodPost, "/api/v1/documents", IngestRequest{Path: path})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "notice.txt")

	w = doJSON(router, http.MethodDelete, "/api/v1/documents/notice.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/documents/notice.txt", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUnknownDocument(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodGet, "/api/v1/documents/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
