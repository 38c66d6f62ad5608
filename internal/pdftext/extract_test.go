package pdftext

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfWithStreams(streams ...[]byte) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	for i, s := range streams {
		b.WriteString("4 0 obj\n<< /Length ")
		b.WriteString(strings.Repeat("9", i+1))
		b.WriteString(" >>\nstream\n")
		b.Write(s)
		b.WriteString("\nendstream\nendobj\n")
	}
	b.WriteString("trailer\n<< /Root 1 0 R >>\n%%EOF\n")
	return b.Bytes()
}

func deflate(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func noPdftotext() Extractor {
	return Extractor{PdftotextPath: "/nonexistent/pdftotext"}
}

func TestScanContentStreamsPlain(t *testing.T) {
	content := "BT /F1 12 Tf 72 712 Td (Please pay the pending rent) Tj 0 -14 Td (within 15 days.) Tj ET"
	got := ScanContentStreams(pdfWithStreams([]byte(content)))
	assert.Equal(t, "Please pay the pending rent\nwithin 15 days.", got)
}

func TestScanContentStreamsFlateAndTJ(t *testing.T) {
	content := "BT /F1 11 Tf [(Legal) -300 (action) -250 (will) -400 (follow)] TJ T* (Escaped \\(paren\\) and \\101) Tj ET"
	got := ScanContentStreams(pdfWithStreams(deflate(t, content)))
	assert.Equal(t, "Legal action will follow\nEscaped (paren) and A", got)
}

func TestScanContentStreamsIgnoresNonTextStreams(t *testing.T) {
	got := ScanContentStreams(pdfWithStreams([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}))
	assert.Empty(t, got)
}

func TestExtractFallsBackToStreamScan(t *testing.T) {
	blob := pdfWithStreams(deflate(t, "BT (Notice of termination of lease agreement) Tj ET"))
	res, err := noPdftotext().Extract(context.Background(), bytes.NewReader(blob))
	require.NoError(t, err)
	assert.Equal(t, MethodStreamScan, res.Method)
	assert.Equal(t, "Notice of termination of lease agreement", res.Text)
	assert.False(t, res.Empty())
}

func TestExtractNoText(t *testing.T) {
	res, err := noPdftotext().Extract(context.Background(), bytes.NewReader([]byte("%PDF-1.4\n%%EOF\n")))
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, MethodNone, res.Method)
}

func TestExtractTooLarge(t *testing.T) {
	ex := noPdftotext()
	ex.MaxBytes = 8
	_, err := ex.Extract(context.Background(), strings.NewReader("%PDF-1.4 and much more"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))
}
