package preprocess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmptyInput(t *testing.T) {
	p := NewPreprocessor()
	assert.Equal(t, "", p.Normalize(""))
	assert.Equal(t, "", p.Normalize("   \n\t\n  "))
}

func TestNormalizeCollapsesWhitespacePreservingParagraphs(t *testing.T) {
	p := NewPreprocessor()

	in := "First   sentence\there.\nStill the same paragraph.\n\nSecond    paragraph.\n"
	out := p.Normalize(in)

	require.Equal(t, "First sentence here. Still the same paragraph.\n\nSecond paragraph.", out)
}

func TestNormalizeStripsPageNumbers(t *testing.T) {
	p := NewPreprocessor()

	in := "Deductible expenses are listed below.\n\n12\n\n- 13 -\n\nPage 14\n\nMore text follows."
	out := p.Normalize(in)

	assert.NotContains(t, out, "12")
	assert.NotContains(t, out, "- 13 -")
	assert.NotContains(t, out, "Page 14")
	assert.Contains(t, out, "Deductible expenses are listed below.")
	assert.Contains(t, out, "More text follows.")
}

func TestNormalizeStripsRepeatedHeaders(t *testing.T) {
	p := NewPreprocessor()

	header := "Publication 535 (2023)"
	body := []string{
		header, "", "Chapter one content.", "",
		header, "", "Chapter two content.", "",
		header, "", "Chapter three content.",
	}
	out := p.Normalize(strings.Join(body, "\n"))

	assert.NotContains(t, out, header)
	assert.Contains(t, out, "Chapter one content.")
	assert.Contains(t, out, "Chapter three content.")
}

func TestNormalizeStripsHeadersRepeatedAfterJoining(t *testing.T) {
	p := NewPreprocessor()

	// The first occurrence of the running header is wrapped over two lines,
	// so it only matches the later occurrences once paragraphs are joined.
	header := "Farm Income and Expenses"
	in := strings.Join([]string{
		"Farm Income", "and Expenses", "",
		"Report all farm income here.", "",
		header, "",
		"Deduct ordinary expenses here.", "",
		header,
	}, "\n")
	out := p.Normalize(in)

	assert.NotContains(t, out, header)
	assert.Contains(t, out, "Report all farm income here.")
	assert.Contains(t, out, "Deduct ordinary expenses here.")
	require.Equal(t, out, p.Normalize(out))
}

func TestNormalizeFixesCitationsAndOCR(t *testing.T) {
	p := NewPreprocessor()

	in := "Under I.R.C. § 179 a t4xable entity may claim a deduct1on.\n\nSee Treas. Reg. 1.179-4 and IRC Sec. 162."
	out := p.Normalize(in)

	assert.Contains(t, out, "IRC Section 179")
	assert.Contains(t, out, "IRC Section 162")
	assert.Contains(t, out, "Treasury Regulation 1.179-4")
	assert.Contains(t, out, "taxable")
	assert.Contains(t, out, "deduction")
	assert.NotContains(t, out, "t4xable")
	assert.NotContains(t, out, "deduct1on")
}

func TestNormalizeIsIdempotent(t *testing.T) {
	p := NewPreprocessor()

	inputs := []string{
		"Section 179 of the I.R.C. § 179 allows a deduct1on.\n\n5\n\nSee Treas. Reg. 1.179-4.",
		"A paragraph\nsplit over\nlines.\n\nAnother one.",
		"Plain text with no artifacts at all.",
		// Joining the first two lines yields a third copy of "aa bb", which
		// crosses the repetition threshold only after the join.
		"aa\nbb\n\naa bb\n\naa bb",
	}
	for _, in := range inputs {
		once := p.Normalize(in)
		twice := p.Normalize(once)
		require.Equal(t, once, twice)
	}
}
