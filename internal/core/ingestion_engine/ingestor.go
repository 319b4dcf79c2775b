package ingestion_engine

import "context"

type Ingestor interface {
	Ingest(ctx context.Context, data []byte, contentType string) (*IngestedDocument, error)
	Hash(ctx context.Context, data []byte, contentType string) (string, error)
}
