package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID(t *testing.T) {
	assert.Equal(t, "pub535_chunk_0", ChunkID("pub535", 0))
	assert.Equal(t, "pub535_chunk_12", ChunkID("pub535", 12))
}

func TestMetadataFromMapRoutesUnknownKeysToTags(t *testing.T) {
	md := MetadataFromMap(map[string]interface{}{
		"title":       "Publication 535",
		"source":      "Internal Revenue Service",
		"document_id": "pub535",
		"sections":    []interface{}{"179", "162"},
		"tags":        []string{"business"},
		"reviewer":    "someone",
	})

	assert.Equal(t, "Publication 535", md.Title)
	assert.Equal(t, "Internal Revenue Service", md.Source)
	assert.Equal(t, "pub535", md.DocumentID)
	assert.Equal(t, []string{"179", "162"}, md.Sections)
	assert.Contains(t, md.Tags, "business")
	assert.Contains(t, md.Tags, "reviewer:someone")
}

func TestMetadataMergePrefersOverride(t *testing.T) {
	base := Metadata{Title: "From File", Source: "Text Document", DocumentID: "a.txt", Tags: []string{"x"}}
	override := Metadata{Title: "Caller Title", Jurisdiction: "Federal", Tags: []string{"y"}}

	merged := base.Merge(override)
	assert.Equal(t, "Caller Title", merged.Title)
	assert.Equal(t, "Text Document", merged.Source)
	assert.Equal(t, "a.txt", merged.DocumentID)
	assert.Equal(t, "Federal", merged.Jurisdiction)
	assert.ElementsMatch(t, []string{"x", "y"}, merged.Tags)
}

func TestMetadataCarriesChunkPreview(t *testing.T) {
	md := MetadataFromMap(map[string]interface{}{
		"title":                 "Publication 535",
		"chunk_content_preview": "Deduction rules...",
	})
	assert.Equal(t, "Deduction rules...", md.ChunkPreview)
	assert.Equal(t, "Deduction rules...", md.ToMap()[MetadataKeyChunkPreview])

	_, present := Metadata{}.ToMap()[MetadataKeyChunkPreview]
	assert.False(t, present)
}

func TestChunkPreview(t *testing.T) {
	short := &Chunk{Text: "  short text  "}
	assert.Equal(t, "short text", short.Preview())

	long := &Chunk{Text: strings.Repeat("a", 250)}
	preview := long.Preview()
	assert.Equal(t, 103, len([]rune(preview)))
	assert.True(t, strings.HasSuffix(preview, "..."))
}

func TestPayloadMetadata(t *testing.T) {
	chunk := &Chunk{
		ID:         ChunkID("pub535", 2),
		DocumentID: "pub535",
		Index:      2,
		Total:      5,
		Text:       "Deduction rules.",
		Metadata:   Metadata{Title: "Publication 535", Source: "IRS", DocumentID: "pub535"},
	}

	payload := chunk.PayloadMetadata()
	require.Equal(t, 2, payload[MetadataKeyChunkIndex])
	require.Equal(t, 5, payload[MetadataKeyChunkTotal])
	assert.Equal(t, "Deduction rules.", payload[MetadataKeyChunkPreview])
	assert.Equal(t, "Publication 535", payload[MetadataKeyTitle])
}
