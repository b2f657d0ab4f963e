package loaders

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/kberrors"
	"taxkb/internal/kb/schema"
)

// JSONLoader reads documents of the shape {"text": string, "metadata": {...}}.
type JSONLoader struct{}

// NewJSONLoader creates a new JSONLoader.
func NewJSONLoader() *JSONLoader {
	return &JSONLoader{}
}

type jsonDocument struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Load parses a JSON document file. The text field is required; the metadata
// object is optional and missing required fields are filled from the file
// name, matching the behavior for plain text documents.
func (l *JSONLoader) Load(ctx context.Context, path string) (*schema.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &kberrors.ExtractionError{Path: path, Cause: err}
	}

	var parsed jsonDocument
	if err := json.Unmarshal(content, &parsed); err != nil {
		return nil, &kberrors.ExtractionError{Path: path, Cause: err}
	}
	if parsed.Text == "" {
		return nil, fmt.Errorf("%s: missing text field: %w", path, kberrors.ErrUnsupportedFormat)
	}

	md := schema.MetadataFromMap(parsed.Metadata)
	if md.Title == "" {
		md.Title = titleFromPath(path)
	}
	if md.DocumentID == "" {
		md.DocumentID = documentID(path)
	}
	if md.Source == "" {
		md.Source = "JSON Document"
	}

	return &schema.Document{
		ID:       md.DocumentID,
		Text:     parsed.Text,
		Metadata: md,
	}, nil
}

var _ interfaces.Loader = (*JSONLoader)(nil)
