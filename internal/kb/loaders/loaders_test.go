package loaders

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxkb/internal/kb/kberrors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestForPathSelectsByExtension(t *testing.T) {
	loader, err := ForPath("docs/pub535.txt")
	require.NoError(t, err)
	assert.IsType(t, &TxtLoader{}, loader)

	loader, err = ForPath("docs/pub535.PDF")
	require.NoError(t, err)
	assert.IsType(t, &PdfLoader{}, loader)

	loader, err = ForPath("docs/pub535.json")
	require.NoError(t, err)
	assert.IsType(t, &JSONLoader{}, loader)
}

func TestForPathSniffsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.dat", "just some plain text content here")

	loader, err := ForPath(path)
	require.NoError(t, err)
	assert.IsType(t, &TxtLoader{}, loader)
}

func TestForPathUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	// PNG magic bytes so content sniffing cannot call it text.
	path := filepath.Join(dir, "image.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, 0o644))

	_, err := ForPath(path)
	assert.ErrorIs(t, err, kberrors.ErrUnsupportedFormat)
}

func TestTxtLoader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "irs_notice.txt",
		"IRS Notice\nIssued 3/15/2023\n\nTaxpayers must file by the deadline.")

	doc, err := NewTxtLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "irs_notice.txt", doc.ID)
	assert.Equal(t, "irs_notice", doc.Metadata.Title)
	assert.Equal(t, "Text Document", doc.Metadata.Source)
	assert.Equal(t, "Text", doc.Metadata.DocumentType)
	assert.Equal(t, "2023-03-15", doc.Metadata.PublicationDate)
	assert.Contains(t, doc.Text, "Taxpayers must file")
}

func TestTxtLoaderTwoDigitYear(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "old.txt", "Revised 6-1-99\n\nBody.")

	doc, err := NewTxtLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "1999-06-01", doc.Metadata.PublicationDate)
}

func TestTxtLoaderNoDate(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plain.txt", "No date anywhere in this document.")

	doc, err := NewTxtLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, doc.Metadata.PublicationDate)
}

func TestTxtLoaderMissingFile(t *testing.T) {
	_, err := NewTxtLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	var extractionErr *kberrors.ExtractionError
	assert.ErrorAs(t, err, &extractionErr)
}

func TestJSONLoader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ruling.json", `{
		"text": "Revenue Ruling body text.",
		"metadata": {
			"title": "Rev. Rul. 2023-14",
			"document_id": "rr-2023-14",
			"jurisdiction": "Federal",
			"custom_field": "extra"
		}
	}`)

	doc, err := NewJSONLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "rr-2023-14", doc.ID)
	assert.Equal(t, "Rev. Rul. 2023-14", doc.Metadata.Title)
	assert.Equal(t, "Federal", doc.Metadata.Jurisdiction)
	assert.Equal(t, "JSON Document", doc.Metadata.Source)
	assert.Contains(t, doc.Metadata.Tags, "custom_field:extra")
	assert.Equal(t, "Revenue Ruling body text.", doc.Text)
}

func TestJSONLoaderDefaultsFromFilename(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "anon.json", `{"text": "Some text."}`)

	doc, err := NewJSONLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "anon.json", doc.ID)
	assert.Equal(t, "anon", doc.Metadata.Title)
}

func TestJSONLoaderMissingText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.json", `{"metadata": {"title": "No Text"}}`)

	_, err := NewJSONLoader().Load(context.Background(), path)
	assert.ErrorIs(t, err, kberrors.ErrUnsupportedFormat)
}

func TestJSONLoaderMalformed(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.json", `{"text": `)

	_, err := NewJSONLoader().Load(context.Background(), path)
	var extractionErr *kberrors.ExtractionError
	assert.ErrorAs(t, err, &extractionErr)
}
