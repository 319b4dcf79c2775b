package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/markdave123-py/StudyCoach/internal/config"
	"github.com/markdave123-py/StudyCoach/internal/core/ingestion_engine"
	"github.com/markdave123-py/StudyCoach/internal/observability"
)

var (
	verbose   bool
	chunkSize int
)

var rootCmd = &cobra.Command{
	Use:   "studycoach",
	Short: "StudyCoach - turn lecture PDFs into study notes from the command line",
	Long: `studycoach runs the note generation pipeline locally: hash and chunk a PDF,
estimate what generating notes for it would cost, generate the notes, or check
that the configured LLM provider is reachable.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVar(&chunkSize, "size", 0, "maximum characters per chunk (default CHUNK_SIZE)")
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func newLogger() zerolog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		Output:      os.Stderr,
		ServiceName: "studycoach-cli",
	})
}

// ingestFile reads, validates, extracts and chunks a PDF from disk.
func ingestFile(ctx context.Context, cfg *config.Config, path string, log zerolog.Logger) (*ingestion_engine.IngestedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	size := cfg.ChunkSize
	if chunkSize > 0 {
		size = chunkSize
	}
	extractor := ingestion_engine.NewDocconvExtractor(false, log)
	ingestor := ingestion_engine.NewDocumentIngestor(extractor, &ingestion_engine.IngestConfig{
		ChunkSize:      size,
		BoundaryWindow: ingestion_engine.BoundaryWindow,
	})
	return ingestor.Ingest(ctx, data, "application/pdf")
}
