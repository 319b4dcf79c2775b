package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// NotesGenerator is the part of the orchestrator the pipeline depends on.
type NotesGenerator interface {
	GenerateNotes(ctx context.Context, chunk string) (string, error)
}

// NotesBatch is the assembled result of generating notes for every chunk.
type NotesBatch struct {
	Content        string
	Chunks         int
	Failed         int
	EstimatedCost  float64
	Recommendation ProcessingRecommendation
}

// Complete reports whether every chunk produced notes.
func (b *NotesBatch) Complete() bool { return b.Failed == 0 }

// Pipeline generates notes chunk by chunk. Workers bounds how many chunks
// are in flight at once; 1 means strictly sequential.
type Pipeline struct {
	gen       NotesGenerator
	estimator *Estimator
	workers   int
	log       zerolog.Logger
}

func NewPipeline(gen NotesGenerator, est *Estimator, workers int, log zerolog.Logger) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	if est == nil {
		est = NewEstimator(DefaultBudget())
	}
	return &Pipeline{gen: gen, estimator: est, workers: workers, log: log.With().Str("component", "pipeline").Logger()}
}

// ChunkFailurePlaceholder is substituted for a chunk whose notes failed.
func ChunkFailurePlaceholder(i, n int) string {
	return fmt.Sprintf("Error generating notes for chunk %d/%d", i, n)
}

// chunkResult is one index-tagged slot of the ordered result set.
type chunkResult struct {
	notes string
	ok    bool
	cost  float64
}

func (p *Pipeline) run(ctx context.Context, chunks []string) []chunkResult {
	results := make([]chunkResult, len(chunks))

	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for i, chunk := range chunks {
		g.Go(func() error {
			p.log.Info().Int("chunk", i+1).Int("of", len(chunks)).Int("chars", len(chunk)).Msg("generating notes")

			notes, err := p.gen.GenerateNotes(ctx, chunk)
			if err != nil {
				p.log.Warn().Int("chunk", i+1).Str("reason", string(KindOf(err))).Err(err).Msg("chunk failed, using placeholder")
				results[i] = chunkResult{notes: ChunkFailurePlaceholder(i+1, len(chunks))}
				return nil
			}
			results[i] = chunkResult{
				notes: notes,
				ok:    true,
				cost:  p.estimator.tokenCost(EstimateTokens(chunk), EstimateTokens(notes)),
			}
			return nil
		})
	}
	// workers never return errors; one failed chunk must not cancel the rest
	_ = g.Wait()
	return results
}

// GenerateNotesForChunks returns one entry per chunk in input order. A chunk
// whose generation failed is represented by ChunkFailurePlaceholder.
func (p *Pipeline) GenerateNotesForChunks(ctx context.Context, chunks []string) []string {
	results := p.run(ctx, chunks)
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.notes
	}
	return out
}

// GenerateNotes runs the whole batch for pre-chunked text and joins the
// notes in order.
func (p *Pipeline) GenerateNotes(ctx context.Context, text string, chunks []string) *NotesBatch {
	rec := p.estimator.Recommend(text)
	p.log.Info().
		Str("strategy", rec.Strategy).
		Int("estimated_tokens", rec.EstimatedTokens).
		Float64("estimated_cost", rec.EstimatedCost).
		Int("chunks", len(chunks)).
		Msg("starting notes generation")

	results := p.run(ctx, chunks)

	batch := &NotesBatch{Chunks: len(chunks), Recommendation: rec}
	notes := make([]string, len(results))
	for i, r := range results {
		notes[i] = r.notes
		batch.EstimatedCost += r.cost
		if !r.ok {
			batch.Failed++
		}
	}
	batch.Content = JoinNotes(notes)

	p.log.Info().
		Int("chunks", batch.Chunks).
		Int("failed", batch.Failed).
		Float64("estimated_cost", batch.EstimatedCost).
		Msg("notes generation finished")
	return batch
}

// JoinNotes assembles per-chunk notes separated by a blank line.
func JoinNotes(notes []string) string {
	return strings.Join(notes, "\n\n")
}
