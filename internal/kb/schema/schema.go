// Package schema defines the data model shared by every stage of the
// knowledge-base pipeline: documents, chunks, metadata, and search results.
package schema

import (
	"fmt"
	"strings"
)

const (
	// MetadataKeyTitle is the key for the document title.
	MetadataKeyTitle = "title"
	// MetadataKeySource is the key for the originating source (e.g. "Internal Revenue Service").
	MetadataKeySource = "source"
	// MetadataKeyDocumentID is the key for the stable document identifier.
	MetadataKeyDocumentID = "document_id"
	// MetadataKeyPublicationDate is the key for the ISO-8601 publication date.
	MetadataKeyPublicationDate = "publication_date"
	// MetadataKeyJurisdiction is the key for the jurisdiction (e.g. "Federal").
	MetadataKeyJurisdiction = "jurisdiction"
	// MetadataKeyDocumentType is the key for the document type (e.g. "Publication", "Ruling").
	MetadataKeyDocumentType = "document_type"
	// MetadataKeySections is the key for the list of relevant sections or chapters.
	MetadataKeySections = "sections"
	// MetadataKeyTags is the key for free-form categorization tags.
	MetadataKeyTags = "tags"
	// MetadataKeyURL is the key for the URL of the original document.
	MetadataKeyURL = "url"
	// MetadataKeyChunkIndex is the key for the zero-based chunk position.
	MetadataKeyChunkIndex = "chunk_index"
	// MetadataKeyChunkTotal is the key for the chunk count of the parent document.
	MetadataKeyChunkTotal = "chunk_total"
	// MetadataKeyChunkPreview is the key for a short preview of the chunk content.
	MetadataKeyChunkPreview = "chunk_content_preview"
)

// previewLength bounds the chunk content preview stored in metadata.
const previewLength = 100

// Metadata is the typed metadata record attached to a document and copied
// onto each of its chunks. Unknown keys seen at the ingestion boundary are
// routed into Tags rather than dropped.
type Metadata struct {
	Title           string   `json:"title"`
	Source          string   `json:"source"`
	DocumentID      string   `json:"document_id"`
	PublicationDate string   `json:"publication_date,omitempty"`
	Jurisdiction    string   `json:"jurisdiction,omitempty"`
	DocumentType    string   `json:"document_type,omitempty"`
	Sections        []string `json:"sections,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	URL             string   `json:"url,omitempty"`

	// ChunkPreview is empty on a document-level record; the splitter stamps
	// it onto each chunk's copy so the stores persist it per chunk.
	ChunkPreview string `json:"chunk_content_preview,omitempty"`
}

// MetadataFromMap builds a Metadata record from a loosely typed map, as read
// from a JSON document or an API request. Unknown scalar keys are routed into
// Tags as "key:value" entries so nothing supplied by the caller is lost.
func MetadataFromMap(m map[string]interface{}) Metadata {
	var md Metadata
	for key, value := range m {
		switch key {
		case MetadataKeyTitle:
			md.Title = toString(value)
		case MetadataKeySource:
			md.Source = toString(value)
		case MetadataKeyDocumentID:
			md.DocumentID = toString(value)
		case MetadataKeyPublicationDate:
			md.PublicationDate = toString(value)
		case MetadataKeyJurisdiction:
			md.Jurisdiction = toString(value)
		case MetadataKeyDocumentType:
			md.DocumentType = toString(value)
		case MetadataKeySections:
			md.Sections = toStringSlice(value)
		case MetadataKeyTags:
			md.Tags = toStringSlice(value)
		case MetadataKeyURL:
			md.URL = toString(value)
		case MetadataKeyChunkPreview:
			md.ChunkPreview = toString(value)
		default:
			md.Tags = append(md.Tags, fmt.Sprintf("%s:%s", key, toString(value)))
		}
	}
	return md
}

// ToMap converts the metadata to a flat map for storage payloads.
func (m Metadata) ToMap() map[string]interface{} {
	out := map[string]interface{}{
		MetadataKeyTitle:      m.Title,
		MetadataKeySource:     m.Source,
		MetadataKeyDocumentID: m.DocumentID,
	}
	if m.PublicationDate != "" {
		out[MetadataKeyPublicationDate] = m.PublicationDate
	}
	if m.Jurisdiction != "" {
		out[MetadataKeyJurisdiction] = m.Jurisdiction
	}
	if m.DocumentType != "" {
		out[MetadataKeyDocumentType] = m.DocumentType
	}
	if len(m.Sections) > 0 {
		out[MetadataKeySections] = append([]string(nil), m.Sections...)
	}
	if len(m.Tags) > 0 {
		out[MetadataKeyTags] = append([]string(nil), m.Tags...)
	}
	if m.URL != "" {
		out[MetadataKeyURL] = m.URL
	}
	if m.ChunkPreview != "" {
		out[MetadataKeyChunkPreview] = m.ChunkPreview
	}
	return out
}

// Merge overlays non-empty fields of other onto a copy of m. Caller-supplied
// metadata overrides what the loader extracted.
func (m Metadata) Merge(other Metadata) Metadata {
	merged := m
	if other.Title != "" {
		merged.Title = other.Title
	}
	if other.Source != "" {
		merged.Source = other.Source
	}
	if other.DocumentID != "" {
		merged.DocumentID = other.DocumentID
	}
	if other.PublicationDate != "" {
		merged.PublicationDate = other.PublicationDate
	}
	if other.Jurisdiction != "" {
		merged.Jurisdiction = other.Jurisdiction
	}
	if other.DocumentType != "" {
		merged.DocumentType = other.DocumentType
	}
	if len(other.Sections) > 0 {
		merged.Sections = append([]string(nil), other.Sections...)
	}
	if len(other.Tags) > 0 {
		merged.Tags = append(append([]string(nil), merged.Tags...), other.Tags...)
	}
	if other.URL != "" {
		merged.URL = other.URL
	}
	if other.ChunkPreview != "" {
		merged.ChunkPreview = other.ChunkPreview
	}
	return merged
}

// Document is a source text with identity. It is created on ingestion and
// never mutated in place; re-ingesting under the same ID replaces it.
type Document struct {
	// ID is the stable document identifier, caller-supplied or derived
	// from the file name.
	ID string

	// Text is the raw extracted text before preprocessing.
	Text string

	// Metadata holds the document-level metadata record.
	Metadata Metadata
}

// Chunk is a contiguous slice of a document's normalized text. It is the
// unit of embedding, storage, and retrieval.
type Chunk struct {
	// ID is derived deterministically from the parent document ID and the
	// chunk index, so re-ingestion overwrites instead of duplicating.
	ID string

	// DocumentID identifies the parent document.
	DocumentID string

	// Index is the zero-based position of the chunk within the document.
	Index int

	// Total is the number of chunks of the parent document. It is stamped
	// once the full chunk sequence is known.
	Total int

	// Text is the chunk content.
	Text string

	// Start and End are the rune offsets of the chunk within the
	// normalized document text (End exclusive).
	Start int
	End   int

	// Embedding is the vector representation of Text. Populated by the
	// embedding stage; nil before that.
	Embedding []float32

	// Metadata is a copy of the parent document metadata.
	Metadata Metadata
}

// ChunkID derives the deterministic chunk identifier for a document and index.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// Preview returns a bounded preview of the chunk content for metadata stamping.
func (c *Chunk) Preview() string {
	text := strings.TrimSpace(c.Text)
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}

// PayloadMetadata flattens the metadata persisted alongside the chunk: the
// document metadata plus the chunk-specific fields.
func (c *Chunk) PayloadMetadata() map[string]interface{} {
	out := c.Metadata.ToMap()
	out[MetadataKeyChunkIndex] = c.Index
	out[MetadataKeyChunkTotal] = c.Total
	out[MetadataKeyChunkPreview] = c.Preview()
	return out
}

// SearchResult is an ephemeral (chunk, similarity score) pair produced by a
// query. Results are ordered relevance-descending.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

func toStringSlice(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...)
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, toString(item))
		}
		return out
	case string:
		if s == "" {
			return nil
		}
		return []string{s}
	default:
		return nil
	}
}
