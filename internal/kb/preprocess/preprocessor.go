// Package preprocess cleans extracted document text before chunking and
// embedding: whitespace normalization, boilerplate removal, and fixes for
// artifacts common in scanned IRS publications.
package preprocess

import (
	"regexp"
	"strings"
)

// Preprocessor normalizes raw document text. Normalize is idempotent and
// never fails; empty input yields an empty string.
type Preprocessor struct{}

// NewPreprocessor creates a new Preprocessor.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{}
}

var (
	// pageNumberRegex matches lines that carry nothing but a page marker.
	pageNumberRegex = regexp.MustCompile(`^\s*(?:Page\s+)?\d+\s*$|^\s*-\s*\d+\s*-\s*$`)

	// spaceRunRegex collapses runs of spaces and tabs.
	spaceRunRegex = regexp.MustCompile(`[ \t]+`)

	// ircSectionRegex normalizes IRC section references,
	// e.g. "I.R.C. § 179" or "IRC Sec. 179" to "IRC Section 179".
	ircSectionRegex = regexp.MustCompile(`(?:IRC|I\.R\.C\.)(?:\s*§\s*|\s*Sec\.?\s+|\s+)(\d+)`)

	// treasRegRegex normalizes Treasury Regulation references,
	// e.g. "Treas. Reg. 1.179-4" to "Treasury Regulation 1.179-4".
	treasRegRegex = regexp.MustCompile(`Treas\.?\s*Reg\.?\s*(\d+\.\d+-\d+)`)
)

// ocrReplacements maps digit-for-letter confusions seen in OCR output of tax
// documents to their corrections. Only glyph-confused forms are listed, so
// applying the table twice changes nothing.
var ocrReplacements = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\bI RS\b`), "IRS"},
	{regexp.MustCompile(`\bSect\s?[i1]on\b`), "Section"},
	{regexp.MustCompile(`\b1ncome\b`), "income"},
	{regexp.MustCompile(`\bdeduct[i1]on\b`), "deduction"},
	{regexp.MustCompile(`\bcred[i1]t\b`), "credit"},
	{regexp.MustCompile(`\bt[a4]xable\b`), "taxable"},
	{regexp.MustCompile(`\bregul[a4]t[i1]on\b`), "regulation"},
}

// repeatedLineThreshold is the occurrence count at which a short line is
// treated as a running header or footer.
const repeatedLineThreshold = 3

// maxBoilerplateLineLength bounds the lines considered for header/footer
// detection; real sentences are rarely repeated verbatim.
const maxBoilerplateLineLength = 60

// Normalize cleans the raw text: boilerplate lines are stripped, whitespace
// runs collapse to a single space while paragraph breaks are preserved, and
// common OCR artifacts and citation forms are normalized.
func (p *Preprocessor) Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := stripBoilerplate(strings.Split(text, "\n"))

	paragraphs := joinParagraphs(lines)
	for i, paragraph := range paragraphs {
		paragraphs[i] = normalizeArtifacts(paragraph)
	}

	// Joining can merge a wrapped header into a paragraph that only now
	// repeats often enough to count as boilerplate, so detection runs a
	// second time on the joined form. Paragraphs are already single
	// normalized lines, so another pass could not strip anything more.
	paragraphs = stripBoilerplate(paragraphs)

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}

// normalizeArtifacts applies the OCR corrections and citation rewrites. Every
// rewrite maps onto a form none of the patterns match, so applying it twice
// changes nothing.
func normalizeArtifacts(text string) string {
	for _, r := range ocrReplacements {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}
	text = ircSectionRegex.ReplaceAllString(text, "IRC Section $1")
	text = treasRegRegex.ReplaceAllString(text, "Treasury Regulation $1")
	return text
}

// stripBoilerplate removes page-number lines and short lines repeated often
// enough to be running headers or footers.
func stripBoilerplate(lines []string) []string {
	counts := make(map[string]int)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && len(trimmed) <= maxBoilerplateLineLength {
			counts[trimmed]++
		}
	}

	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			if pageNumberRegex.MatchString(trimmed) {
				continue
			}
			if len(trimmed) <= maxBoilerplateLineLength && counts[trimmed] >= repeatedLineThreshold {
				continue
			}
		}
		kept = append(kept, line)
	}
	return kept
}

// joinParagraphs groups lines into paragraphs at blank-line boundaries and
// collapses all internal whitespace to single spaces.
func joinParagraphs(lines []string) []string {
	var paragraphs []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		joined := strings.Join(current, " ")
		joined = spaceRunRegex.ReplaceAllString(joined, " ")
		joined = strings.TrimSpace(joined)
		if joined != "" {
			paragraphs = append(paragraphs, joined)
		}
		current = current[:0]
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, strings.TrimSpace(line))
	}
	flush()

	return paragraphs
}
