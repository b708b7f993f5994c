package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
)

const pdfMIMEType = "application/pdf"

// ErrExtraction wraps every failure to read an uploaded report.
var ErrExtraction = errors.New("failed to extract report content")

// Attachment is an image ready to be sent inline to the model.
type Attachment struct {
	MIMEType string
	Data     string // base64, standard encoding
}

// Result is what an upload contributes to the prompt. For PDFs HasText is set
// even when the document contains no text.
type Result struct {
	Text       string
	HasText    bool
	Attachment *Attachment
}

// PDFReader returns the plain text of the PDF at path.
type PDFReader func(path string) (string, error)

// Option configures an Extractor
type Option func(*Extractor)

// WithPDFReader replaces the PDF text reader.
func WithPDFReader(r PDFReader) Option {
	return func(e *Extractor) {
		e.readPDF = r
	}
}

// Extractor turns staged uploads into prompt content.
type Extractor struct {
	readPDF PDFReader
	logger  *logrus.Logger
}

// New creates an Extractor
func New(logger *logrus.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		readPDF: ReadPDFText,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the staged file according to its declared media type and
// always removes it before returning, whatever the outcome. Types other than
// PDF and images yield an empty Result.
func (e *Extractor) Extract(ctx context.Context, path, mimeType string) (Result, error) {
	defer e.remove(path)

	switch {
	case mimeType == pdfMIMEType:
		text, err := e.readPDF(path)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		return Result{Text: text, HasText: true}, nil

	case strings.HasPrefix(mimeType, "image/"):
		data, err := os.ReadFile(path)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		return Result{Attachment: &Attachment{
			MIMEType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(data),
		}}, nil
	}

	e.logger.WithField("mime_type", mimeType).Debug("Ignoring upload with unsupported type")
	return Result{}, nil
}

func (e *Extractor) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.logger.WithError(err).WithField("path", path).Warn("Failed to remove staged upload")
	}
}

// ReadPDFText extracts the plain text of a PDF file. The parser panics on some
// malformed input; that is reported as an error.
func ReadPDFText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
