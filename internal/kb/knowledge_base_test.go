package kb

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxkb/internal/collector"
	"taxkb/internal/kb/docstore"
	"taxkb/internal/kb/pipeline"
	"taxkb/internal/kb/preprocess"
	"taxkb/internal/kb/schema"
	"taxkb/internal/kb/splitters"
	"taxkb/internal/kb/vectorstore"
	"taxkb/pkg/logger"
)

type constEmbedder struct{}

func (constEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 1}
	}
	return vectors, nil
}

func newTestKB(t *testing.T) *KnowledgeBase {
	t.Helper()
	logger.Init("error")
	log := logger.New("kb-test")

	splitter, err := splitters.NewCharacterSplitter(300, 50)
	require.NoError(t, err)
	vs := vectorstore.NewMemoryStore()
	ds := docstore.NewInMemoryDocStore()

	indexing := pipeline.NewIndexingPipeline(preprocess.NewPreprocessor(), splitter, constEmbedder{}, ds, vs, log)
	retrieval := pipeline.NewRetrievalPipeline(constEmbedder{}, vs, nil, log)
	return NewKnowledgeBase(indexing, retrieval, nil, ds, 5, log)
}

func TestAddDocumentMergesSidecarAndCallerMetadata(t *testing.T) {
	knowledgeBase := newTestKB(t)
	dir := t.TempDir()

	docPath := filepath.Join(dir, "irs_pub_535_2023.txt")
	require.NoError(t, os.WriteFile(docPath, []byte("Section 179 deduction rules."), 0o644))

	sidecar := collector.PublicationMetadata("535", "2023", "https://www.irs.gov/pub/irs-pdf/p535.pdf")
	payload, err := json.Marshal(sidecar)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "irs_pub_535_2023.meta.json"), payload, 0o644))

	result, err := knowledgeBase.AddDocument(context.Background(), docPath,
		schema.Metadata{Jurisdiction: "State"})
	require.NoError(t, err)
	assert.Equal(t, "irs_pub_535_2023", result.DocumentID)

	chunks, err := knowledgeBase.GetDocument(context.Background(), "irs_pub_535_2023")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	// Sidecar fills what the loader could not; caller metadata wins last.
	assert.Equal(t, "IRS Publication 535", chunks[0].Metadata.Title)
	assert.Equal(t, "State", chunks[0].Metadata.Jurisdiction)
}

func TestAddDocumentPersistsChunkPreviews(t *testing.T) {
	knowledgeBase := newTestKB(t)
	dir := t.TempDir()
	docPath := filepath.Join(dir, "doc.txt")
	content := strings.TrimSpace(strings.Repeat("Qualified expenses are deductible in the year paid. ", 20))
	require.NoError(t, os.WriteFile(docPath, []byte(content), 0o644))

	_, err := knowledgeBase.AddDocument(context.Background(), docPath, schema.Metadata{})
	require.NoError(t, err)

	chunks, err := knowledgeBase.GetDocument(context.Background(), "doc.txt")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		require.NotEmpty(t, chunk.Metadata.ChunkPreview)
		assert.Equal(t, chunk.Preview(), chunk.Metadata.ChunkPreview)
	}
}

func TestBatchAddDocumentsIsolatesFailures(t *testing.T) {
	knowledgeBase := newTestKB(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.txt"),
		[]byte("Standard deduction amounts."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"),
		[]byte(`{"metadata": {}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.bin"),
		[]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.meta.json"),
		[]byte(`{"title": "sidecar"}`), 0o644))

	report, err := knowledgeBase.BatchAddDocuments(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, report.Succeeded, 1)
	assert.Equal(t, "good.txt", report.Succeeded[0].DocumentID)
	// The JSON document without text is unsupported, as is the binary file;
	// neither aborts the batch. The sidecar is not a document at all.
	assert.Len(t, report.Skipped, 2)
	assert.Empty(t, report.Failed)
}

func TestBatchAddDocumentsRecursesSubdirectories(t *testing.T) {
	knowledgeBase := newTestKB(t)
	dir := t.TempDir()
	sub := filepath.Join(dir, "rulings")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "rr.txt"),
		[]byte("Revenue ruling body."), 0o644))

	report, err := knowledgeBase.BatchAddDocuments(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, report.Succeeded, 1)
	assert.Equal(t, "rr.txt", report.Succeeded[0].DocumentID)
}

func TestSearchUsesDefaultTopK(t *testing.T) {
	knowledgeBase := newTestKB(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"),
		[]byte("Some tax guidance."), 0o644))
	_, err := knowledgeBase.AddDocument(context.Background(), filepath.Join(dir, "doc.txt"), schema.Metadata{})
	require.NoError(t, err)

	results, err := knowledgeBase.Search(context.Background(), "tax guidance", 0, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestAskWithoutLLMConfigured(t *testing.T) {
	knowledgeBase := newTestKB(t)
	_, err := knowledgeBase.Ask(context.Background(), "question", 0, nil)
	assert.Error(t, err)
}

func TestDeleteDocument(t *testing.T) {
	knowledgeBase := newTestKB(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"),
		[]byte("Some tax guidance."), 0o644))
	_, err := knowledgeBase.AddDocument(context.Background(), filepath.Join(dir, "doc.txt"), schema.Metadata{})
	require.NoError(t, err)

	require.NoError(t, knowledgeBase.DeleteDocument(context.Background(), "doc.txt"))
	chunks, err := knowledgeBase.GetDocument(context.Background(), "doc.txt")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	docs, err := knowledgeBase.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}
