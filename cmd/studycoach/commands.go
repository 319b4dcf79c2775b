package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/StudyCoach/internal/config"
	"github.com/markdave123-py/StudyCoach/internal/core/llm"
)

var notesOutput string

var hashCmd = &cobra.Command{
	Use:   "hash <pdf>",
	Short: "Print the content hash of a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := ingestFile(cmd.Context(), config.Load(), args[0], newLogger())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), doc.ContentHash)
		return nil
	},
}

var chunkCmd = &cobra.Command{
	Use:   "chunk <pdf>",
	Short: "Show how a PDF would be split into chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := ingestFile(cmd.Context(), config.Load(), args[0], newLogger())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pages: %d  characters: %d  chunks: %d\n", doc.Pages, utf8.RuneCountInString(doc.Text), len(doc.Chunks))
		for i, c := range doc.Chunks {
			preview := strings.Join(strings.Fields(c), " ")
			if utf8.RuneCountInString(preview) > 60 {
				preview = string([]rune(preview)[:60]) + "..."
			}
			fmt.Fprintf(out, "%4d  %8d  %s\n", i+1, utf8.RuneCountInString(c), preview)
		}
		return nil
	},
}

var estimateCmd = &cobra.Command{
	Use:   "estimate <pdf>",
	Short: "Estimate tokens and cost of generating notes for a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		doc, err := ingestFile(cmd.Context(), cfg, args[0], newLogger())
		if err != nil {
			return err
		}
		rec := llm.NewEstimator(cfg.LLMConfig().Budget).Recommend(doc.Text)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			ContentHash string `json:"content_hash"`
			Chunks      int    `json:"chunks"`
			llm.ProcessingRecommendation
		}{doc.ContentHash, len(doc.Chunks), rec})
	},
}

var notesCmd = &cobra.Command{
	Use:   "notes <pdf>",
	Short: "Generate study notes for a PDF and write them as markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := newLogger()

		doc, err := ingestFile(cmd.Context(), cfg, args[0], log)
		if err != nil {
			return err
		}
		orchestrator, err := llm.New(cmd.Context(), cfg.LLMConfig(), log)
		if err != nil {
			return err
		}

		pipeline := llm.NewPipeline(orchestrator, orchestrator.Estimator(), cfg.NoteWorkers, log)
		batch := pipeline.GenerateNotes(cmd.Context(), doc.Text, doc.Chunks)

		out := notesOutput
		if out == "" {
			base := filepath.Base(args[0])
			out = strings.TrimSuffix(base, filepath.Ext(base)) + "-notes.md"
		}
		if err := os.WriteFile(out, []byte(batch.Content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d chunks, %d failed, estimated cost $%.4f)\n",
			out, batch.Chunks, batch.Failed, batch.EstimatedCost)
		if !batch.Complete() {
			return fmt.Errorf("%d of %d chunks failed", batch.Failed, batch.Chunks)
		}
		return nil
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the configured LLM provider answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		orchestrator, err := llm.New(cmd.Context(), cfg.LLMConfig(), newLogger())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if !orchestrator.TestConnection(ctx) {
			return fmt.Errorf("provider did not answer for model %s", orchestrator.ModelName())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %s\n", orchestrator.ModelName())
		return nil
	},
}

func init() {
	notesCmd.Flags().StringVarP(&notesOutput, "out", "o", "", "output markdown file (default <pdf>-notes.md)")
	rootCmd.AddCommand(hashCmd, chunkCmd, estimateCmd, notesCmd, pingCmd)
}
