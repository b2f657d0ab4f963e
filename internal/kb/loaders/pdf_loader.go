package loaders

import (
	"context"
	"strings"

	"github.com/ledongthuc/pdf"

	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/kberrors"
	"taxkb/internal/kb/schema"
)

// PdfLoader reads PDF documents, concatenating page text in page order.
type PdfLoader struct{}

// NewPdfLoader creates a new PdfLoader.
func NewPdfLoader() *PdfLoader {
	return &PdfLoader{}
}

// Load extracts the text of every page of a PDF file and returns the
// concatenation as a single Document. Unreadable or encrypted files yield
// an ExtractionError.
func (l *PdfLoader) Load(ctx context.Context, path string) (*schema.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, &kberrors.ExtractionError{Path: path, Cause: err}
	}
	defer f.Close()

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, &kberrors.ExtractionError{Path: path, Cause: err}
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	return &schema.Document{
		ID:   documentID(path),
		Text: sb.String(),
		Metadata: schema.Metadata{
			Title:        titleFromPath(path),
			Source:       "PDF Document",
			DocumentID:   documentID(path),
			DocumentType: "PDF",
		},
	}, nil
}

var _ interfaces.Loader = (*PdfLoader)(nil)
