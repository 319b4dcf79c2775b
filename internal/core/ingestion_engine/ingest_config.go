package ingestion_engine

import (
	"github.com/markdave123-py/StudyCoach/internal/core"
)

// IngestConfig tunes the ingestion stage.
//
// ChunkSize:      maximum characters per chunk handed to notes generation.
// BoundaryWindow: how far back the chunker searches for a natural break.
type IngestConfig struct {
	ChunkSize      int
	BoundaryWindow int
}

// IngestedDocument is the transient result of ingesting one upload: the
// full text, its content hash and the ordered chunks.
type IngestedDocument struct {
	Text        string
	ContentHash string
	Pages       int
	Chunks      []string
}

// DocumentIngestor turns raw uploads into hashed, chunked text.
//
// extractor: document to text conversion.
// chunker:   boundary-aware splitter built from cfg.
type DocumentIngestor struct {
	extractor core.DocumentExtractor
	chunker   *Chunker
}
