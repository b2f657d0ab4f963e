package splitters

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxkb/internal/kb/kberrors"
	"taxkb/internal/kb/schema"
)

func TestSplitStampsChunkPreview(t *testing.T) {
	splitter, err := NewCharacterSplitter(150, 20)
	require.NoError(t, err)

	text := strings.TrimSpace(strings.Repeat("Qualifying expenses are deductible under the usual rules. ", 10))
	chunks, err := splitter.Split(context.Background(), newDoc(text))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		require.NotEmpty(t, chunk.Metadata.ChunkPreview)
		assert.Equal(t, chunk.Preview(), chunk.Metadata.ChunkPreview)
	}
	assert.True(t, strings.HasSuffix(chunks[0].Metadata.ChunkPreview, "..."))
}

func newDoc(text string) *schema.Document {
	return &schema.Document{
		ID:       "doc-1",
		Text:     text,
		Metadata: schema.Metadata{Title: "Doc One", DocumentID: "doc-1"},
	}
}

func TestNewCharacterSplitterRejectsInvalidConfig(t *testing.T) {
	cases := []struct{ size, overlap int }{
		{0, 0},
		{-1, 0},
		{100, -1},
		{100, 100},
		{100, 150},
	}
	for _, tc := range cases {
		_, err := NewCharacterSplitter(tc.size, tc.overlap)
		require.Error(t, err)
		var invalid *kberrors.InvalidConfigError
		assert.ErrorAs(t, err, &invalid)
	}
}

func TestSplitEmptyText(t *testing.T) {
	s, err := NewCharacterSplitter(100, 10)
	require.NoError(t, err)

	chunks, err := s.Split(context.Background(), newDoc(""))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitShortTextYieldsSingleChunk(t *testing.T) {
	s, err := NewCharacterSplitter(100, 10)
	require.NoError(t, err)

	chunks, err := s.Split(context.Background(), newDoc("short text"))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "doc-1_chunk_0", chunks[0].ID)
	assert.Equal(t, "short text", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[0].Total)
}

func TestSplitCoversFullTextInOrder(t *testing.T) {
	s, err := NewCharacterSplitter(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("abcdefghij", 30)
	chunks, err := s.Split(context.Background(), newDoc(text))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	runes := []rune(text)
	prevEnd := 0
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, len(chunks), chunk.Total)
		assert.Equal(t, schema.ChunkID("doc-1", i), chunk.ID)
		assert.Equal(t, string(runes[chunk.Start:chunk.End]), chunk.Text)
		assert.LessOrEqual(t, len([]rune(chunk.Text)), 50)

		// No gap: each chunk starts at or before the previous end.
		assert.LessOrEqual(t, chunk.Start, prevEnd)
		assert.Greater(t, chunk.End, prevEnd)
		prevEnd = chunk.End
	}
	assert.Equal(t, len(runes), chunks[len(chunks)-1].End)
}

func TestSplitChunkCountBound(t *testing.T) {
	size, overlap := 50, 10
	s, err := NewCharacterSplitter(size, overlap)
	require.NoError(t, err)

	// Uniform text with no break characters, so every window is a hard cut.
	text := strings.Repeat("x", 1000)
	chunks, err := s.Split(context.Background(), newDoc(text))
	require.NoError(t, err)

	step := size - overlap
	maxChunks := (len(text) + step - 1) / step
	assert.LessOrEqual(t, len(chunks), maxChunks)
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	s, err := NewCharacterSplitter(60, 10)
	require.NoError(t, err)

	first := "This is the first sentence of the document."
	text := first + " This second sentence pushes past the window size limit."
	chunks, err := s.Split(context.Background(), newDoc(text))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	assert.Equal(t, first, strings.TrimSpace(chunks[0].Text))
}

func TestSplitOverlapCarriesContext(t *testing.T) {
	s, err := NewCharacterSplitter(40, 10)
	require.NoError(t, err)

	text := strings.Repeat("y", 100)
	chunks, err := s.Split(context.Background(), newDoc(text))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].End-10, chunks[i].Start)
	}
}

func TestSplitCanceledContext(t *testing.T) {
	s, err := NewCharacterSplitter(10, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Split(ctx, newDoc(strings.Repeat("z", 100)))
	assert.ErrorIs(t, err, context.Canceled)
}
