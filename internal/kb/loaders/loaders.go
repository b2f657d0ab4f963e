// Package loaders implements the text extraction stage: converting a source
// file (plain text, PDF, or JSON) into a Document with base metadata.
package loaders

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/kberrors"
)

// ForPath selects a loader for the given file, by extension first and by
// content-type detection when the extension is missing or unknown.
func ForPath(path string) (interfaces.Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return NewTxtLoader(), nil
	case ".pdf":
		return NewPdfLoader(), nil
	case ".json":
		return NewJSONLoader(), nil
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, &kberrors.ExtractionError{Path: path, Cause: err}
	}
	switch {
	case mtype.Is("application/pdf"):
		return NewPdfLoader(), nil
	case mtype.Is("application/json"):
		return NewJSONLoader(), nil
	case mtype.Is("text/plain"):
		return NewTxtLoader(), nil
	}
	return nil, kberrors.ErrUnsupportedFormat
}

// documentID derives a stable document identifier from the file name.
func documentID(path string) string {
	return filepath.Base(path)
}

// titleFromPath derives a human-readable title from the file name.
func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
