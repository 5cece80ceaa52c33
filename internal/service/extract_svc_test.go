package service

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTXT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("  plain text content\n"), 0o644))

	svc := NewExtractService()
	text, err := svc.Extract(path, "txt")
	require.NoError(t, err)
	assert.Equal(t, "plain text content", text)
}

func TestExtractTXTCaseInsensitiveType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	svc := NewExtractService()
	text, err := svc.Extract(path, "TXT")
	require.NoError(t, err)
	assert.Equal(t, "content", text)
}

func TestExtractUnsupportedType(t *testing.T) {
	svc := NewExtractService()
	_, err := svc.Extract("whatever.csv", "csv")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractMissingFile(t *testing.T) {
	svc := NewExtractService()
	_, err := svc.Extract(filepath.Join(t.TempDir(), "absent.txt"), "txt")
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtractDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.docx")
	writeDOCX(t, path, `<?xml version="1.0"?>
<document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <body>
    <p><r><t>First paragraph.</t></r></p>
    <p><r><t>Second </t></r><r><t>paragraph.</t></r></p>
  </body>
</document>`)

	svc := NewExtractService()
	text, err := svc.Extract(path, "docx")
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\nSecond paragraph.", text)
}

func TestExtractDOCXWithoutDocumentXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/other.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<x/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	svc := NewExtractService()
	_, err = svc.Extract(path, "docx")
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func writeDOCX(t *testing.T, path, documentXML string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}
