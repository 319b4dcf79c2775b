package ingestion_engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/StudyCoach/internal/core"
)

const pdfContentType = "application/pdf"

var (
	// ErrNotPDF is returned when the uploaded bytes are not a readable PDF.
	ErrNotPDF = errors.New("not a valid PDF document")
	// ErrNoText is returned when a document yields no extractable text.
	ErrNoText = errors.New("no text could be extracted from document")
)

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv,
// with pdfcpu checking the document structure first.
type DocconvExtractor struct {
	useReadability bool
	log            zerolog.Logger
}

func NewDocconvExtractor(useReadability bool, log zerolog.Logger) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability, log: log}
}

// ExtractText validates PDFs, then converts the document to plain text.
func (e *DocconvExtractor) ExtractText(ctx context.Context, data []byte, contentType string) (*core.ExtractedText, error) {
	if contentType == "" {
		contentType = pdfContentType
	}

	pages := 0
	if contentType == pdfContentType {
		n, err := InspectPDF(data)
		if err != nil {
			return nil, err
		}
		pages = n
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
	if err != nil {
		e.log.Error().Err(err).Str("content_type", contentType).Msg("docconv extraction failed")
		return nil, fmt.Errorf("extract text: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := normalizeText(res.Body)
	if strings.TrimSpace(text) == "" {
		e.log.Warn().Str("content_type", contentType).Msg("docconv extracted empty text")
		return nil, ErrNoText
	}

	e.log.Debug().Int("pages", pages).Int("chars", len(text)).Msg("text extracted")
	return &core.ExtractedText{Text: text, Pages: pages, Metadata: res.Meta}, nil
}

// InspectPDF checks the PDF header and structure and returns the page count.
func InspectPDF(data []byte) (int, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return 0, ErrNotPDF
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	return n, nil
}

// normalizeText unifies line endings and drops the form feeds pdftotext
// emits between pages, keeping pages separated by a paragraph break.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\f", "\n\n")
	return s
}
