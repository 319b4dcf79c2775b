package ingestion_engine

import (
	"context"
	"fmt"

	"github.com/markdave123-py/StudyCoach/internal/core"
)

var _ Ingestor = (*DocumentIngestor)(nil)

// NewDocumentIngestor constructs the ingestor. A nil cfg uses the defaults.
func NewDocumentIngestor(extractor core.DocumentExtractor, cfg *IngestConfig) *DocumentIngestor {
	chunker := NewChunker(OptimalChunkSize)
	if cfg != nil {
		chunker = NewChunker(cfg.ChunkSize)
		if cfg.BoundaryWindow > 0 {
			chunker.Window = cfg.BoundaryWindow
		}
	}
	return &DocumentIngestor{extractor: extractor, chunker: chunker}
}

// Ingest extracts, hashes and chunks a document.
func (i *DocumentIngestor) Ingest(ctx context.Context, data []byte, contentType string) (*IngestedDocument, error) {
	extracted, err := i.extractor.ExtractText(ctx, data, contentType)
	if err != nil {
		return nil, err
	}

	chunks, err := i.chunker.Split(extracted.Text)
	if err != nil {
		return nil, fmt.Errorf("chunk text: %w", err)
	}

	return &IngestedDocument{
		Text:        extracted.Text,
		ContentHash: ContentHash(extracted.Text),
		Pages:       extracted.Pages,
		Chunks:      chunks,
	}, nil
}

// Hash extracts the text and returns only its content hash.
func (i *DocumentIngestor) Hash(ctx context.Context, data []byte, contentType string) (string, error) {
	extracted, err := i.extractor.ExtractText(ctx, data, contentType)
	if err != nil {
		return "", err
	}
	return ContentHash(extracted.Text), nil
}
