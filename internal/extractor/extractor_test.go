package extractor

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stage(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func assertRemoved(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "staged file %s should be removed", path)
}

func TestExtract_Image(t *testing.T) {
	logger, _ := test.NewNullLogger()
	content := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	path := stage(t, "scan.png", content)

	res, err := New(logger).Extract(context.Background(), path, "image/png")
	require.NoError(t, err)

	require.NotNil(t, res.Attachment)
	assert.Equal(t, "image/png", res.Attachment.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(content), res.Attachment.Data)
	assert.False(t, res.HasText)
	assertRemoved(t, path)
}

func TestExtract_PDF(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := stage(t, "report.pdf", []byte("%PDF-1.4"))

	var readPath string
	ex := New(logger, WithPDFReader(func(p string) (string, error) {
		readPath = p
		return "Creatinine 1.9 mg/dL", nil
	}))

	res, err := ex.Extract(context.Background(), path, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, path, readPath)
	assert.True(t, res.HasText)
	assert.Equal(t, "Creatinine 1.9 mg/dL", res.Text)
	assert.Nil(t, res.Attachment)
	assertRemoved(t, path)
}

func TestExtract_PDFWithoutText(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := stage(t, "blank.pdf", []byte("%PDF-1.4"))
	ex := New(logger, WithPDFReader(func(string) (string, error) { return "", nil }))

	res, err := ex.Extract(context.Background(), path, "application/pdf")
	require.NoError(t, err)
	assert.True(t, res.HasText)
	assert.Empty(t, res.Text)
}

func TestExtract_PDFFailureStillRemovesFile(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := stage(t, "broken.pdf", []byte("definitely not a pdf"))

	// Real parser on garbage input.
	res, err := New(logger).Extract(context.Background(), path, "application/pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Equal(t, Result{}, res)
	assertRemoved(t, path)
}

func TestExtract_PanickingReaderStillRemovesFile(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := stage(t, "boom.pdf", []byte("%PDF-1.4"))
	ex := New(logger, WithPDFReader(func(string) (string, error) { panic("parser exploded") }))

	assert.Panics(t, func() {
		_, _ = ex.Extract(context.Background(), path, "application/pdf")
	})
	assertRemoved(t, path)
}

func TestExtract_UnsupportedTypeIgnored(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := stage(t, "notes.txt", []byte("hello"))

	res, err := New(logger).Extract(context.Background(), path, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assertRemoved(t, path)
}

func TestExtract_MissingFileIsNotLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "gone.png")

	_, err := New(logger).Extract(context.Background(), path, "image/png")
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Empty(t, hook.AllEntries())
}

func TestReadPDFText_RecoversFromPanics(t *testing.T) {
	path := stage(t, "truncated.pdf", []byte("%PDF-1.4\n%%EOF"))
	_, err := ReadPDFText(path)
	assert.Error(t, err)
}
