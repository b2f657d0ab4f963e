package loaders

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/kberrors"
	"taxkb/internal/kb/schema"
)

// TxtLoader reads plain text documents.
type TxtLoader struct{}

// NewTxtLoader creates a new TxtLoader.
func NewTxtLoader() *TxtLoader {
	return &TxtLoader{}
}

// dateRegex matches common M/D/Y date notations found in IRS document headers.
var dateRegex = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})`)

// Load reads a text file and returns it as a single Document. A publication
// date is sniffed from the first few lines, where IRS text documents
// commonly carry one.
func (l *TxtLoader) Load(ctx context.Context, path string) (*schema.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &kberrors.ExtractionError{Path: path, Cause: err}
	}
	text := string(content)

	return &schema.Document{
		ID:   documentID(path),
		Text: text,
		Metadata: schema.Metadata{
			Title:           titleFromPath(path),
			Source:          "Text Document",
			DocumentID:      documentID(path),
			DocumentType:    "Text",
			PublicationDate: sniffPublicationDate(text),
		},
	}, nil
}

// sniffPublicationDate scans the first lines of the text for a date and
// returns it in ISO form, or "" when none is found.
func sniffPublicationDate(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}
	for _, line := range lines {
		m := dateRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		month := atoi(m[1])
		day := atoi(m[2])
		year := atoi(m[3])
		if year < 100 {
			if year < 50 {
				year += 2000
			} else {
				year += 1900
			}
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	}
	return ""
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

var _ interfaces.Loader = (*TxtLoader)(nil)
