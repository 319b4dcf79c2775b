package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/markdave123-py/StudyCoach/internal/core"
	ingestion "github.com/markdave123-py/StudyCoach/internal/core/ingestion_engine"
	"github.com/markdave123-py/StudyCoach/internal/core/llm"
	"github.com/markdave123-py/StudyCoach/internal/models"
)

const (
	pdfContentType = "application/pdf"

	MsgRetrievedNotes = "Retrieved existing notes"
	MsgGeneratedNotes = "Generated new notes"

	DefaultGenerationTimeout = 10 * time.Minute
)

// Generator is the slice of the LLM orchestrator the services call.
type Generator interface {
	llm.NotesGenerator
	GenerateFlashcards(ctx context.Context, content, category string) ([]models.Flashcard, error)
	GenerateQuiz(ctx context.Context, content, subject, title string) ([]models.QuizQuestion, error)
	AnswerQuestion(ctx context.Context, notes, question string) (string, error)
	ModelName() string
}

// Deps collects what StudyService is built from. Cache and Storage are
// optional.
type Deps struct {
	DB        core.DbClient
	Cache     core.NoteCache
	Storage   core.ObjectClient
	Bucket    string
	Ingestor  ingestion.Ingestor
	Generator Generator
	Estimator *llm.Estimator
	Workers   int
	Log       zerolog.Logger

	// GenerationTimeout bounds work shared by callers of one content hash.
	// Zero means DefaultGenerationTimeout.
	GenerationTimeout time.Duration
}

type StudyService struct {
	db        core.DbClient
	cache     core.NoteCache
	documents *DocumentService
	ingestor  ingestion.Ingestor
	gen       Generator
	pipeline  *llm.Pipeline
	log       zerolog.Logger

	// one in-flight generation per content hash
	group         singleflight.Group
	sharedTimeout time.Duration
}

func NewStudyService(d Deps) *StudyService {
	log := d.Log.With().Str("component", "study_service").Logger()
	timeout := d.GenerationTimeout
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &StudyService{
		db:        d.DB,
		cache:     d.Cache,
		documents: NewDocumentService(d.DB, d.Storage, d.Bucket, log),
		ingestor:  d.Ingestor,
		gen:       d.Generator,
		pipeline:  llm.NewPipeline(d.Generator, d.Estimator, d.Workers, d.Log),
		log:       log,

		sharedTimeout: timeout,
	}
}

type ProcessRequest struct {
	UserID      string
	Subject     string
	FileName    string
	Data        []byte
	ContentHash string // optional; checked against the computed hash
}

type NotesResult struct {
	Note          *models.StudyNote `json:"note"`
	Material      *models.Material  `json:"material,omitempty"`
	Cached        bool              `json:"cached"`
	Persisted     bool              `json:"persisted"`
	Chunks        int               `json:"chunks,omitempty"`
	FailedChunks  int               `json:"failed_chunks,omitempty"`
	EstimatedCost float64           `json:"estimated_cost,omitempty"`
	Message       string            `json:"message"`
}

// generated is what one singleflight run hands back to every waiter.
type generated struct {
	note      *models.StudyNote
	batch     *llm.NotesBatch
	persisted bool
	existing  bool
}

// GenerateHash extracts the document text and returns its content hash.
func (s *StudyService) GenerateHash(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	hash, err := s.ingestor.Hash(ctx, data, pdfContentType)
	if err != nil {
		return "", extractionError(err)
	}
	return hash, nil
}

// ProcessPDF returns the notes for an uploaded PDF, generating them only when
// no notes exist for its content hash yet.
func (s *StudyService) ProcessPDF(ctx context.Context, req ProcessRequest) (*NotesResult, error) {
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}

	doc, err := s.ingestor.Ingest(ctx, req.Data, pdfContentType)
	if err != nil {
		return nil, extractionError(err)
	}
	if req.ContentHash != "" && !strings.EqualFold(strings.TrimSpace(req.ContentHash), doc.ContentHash) {
		return nil, ErrHashMismatch
	}

	log := s.log.With().Str("content_hash", doc.ContentHash).Str("user_id", req.UserID).Logger()

	note, err := s.lookupNote(ctx, doc.ContentHash)
	if err != nil {
		return nil, err
	}
	if note != nil {
		log.Info().Msg("notes already exist, skipping generation")
		material := s.documents.Record(ctx, req, doc)
		return &NotesResult{Note: note, Material: material, Cached: true, Persisted: true, Message: MsgRetrievedNotes}, nil
	}

	v, shared, err := s.shared(ctx, doc.ContentHash, func(ctx context.Context) (any, error) {
		return s.generateNotes(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	g := v.(*generated)
	if shared {
		log.Debug().Msg("joined in-flight generation")
	}

	res := &NotesResult{
		Note:      g.note,
		Cached:    g.existing,
		Persisted: g.persisted,
		Message:   MsgGeneratedNotes,
	}
	if g.existing {
		res.Message = MsgRetrievedNotes
	}
	if g.batch != nil {
		res.Chunks = g.batch.Chunks
		res.FailedChunks = g.batch.Failed
		res.EstimatedCost = g.batch.EstimatedCost
	}
	if g.persisted {
		res.Material = s.documents.Record(ctx, req, doc)
	}
	return res, nil
}

// shared runs fn once per key across concurrent callers. fn runs detached
// from any single caller's cancellation so one client going away does not
// fail the others; each caller still stops waiting when its own ctx ends.
func (s *StudyService) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, bool, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sharedTimeout)
		defer cancel()
		return fn(workCtx)
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case r := <-ch:
		return r.Val, r.Shared, r.Err
	}
}

// generateNotes runs the notes pipeline and stores the result. A batch with
// some failed chunks is stored too, placeholders included, so a hash is
// generated at most once; retrying the failed chunks means deleting the note.
// Only a batch where every chunk failed is discarded.
func (s *StudyService) generateNotes(ctx context.Context, doc *ingestion.IngestedDocument) (*generated, error) {
	// a concurrent request may have stored notes since the first lookup
	existing, err := s.db.GetStudyNoteByHash(ctx, doc.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("lookup notes: %w", err)
	}
	if existing != nil {
		return &generated{note: existing, persisted: true, existing: true}, nil
	}

	batch := s.pipeline.GenerateNotes(ctx, doc.Text, doc.Chunks)
	if batch.Chunks > 0 && batch.Failed == batch.Chunks {
		return nil, ErrGenerationFailed
	}

	note := &models.StudyNote{
		ContentHash: doc.ContentHash,
		Content:     batch.Content,
		ModelUsed:   s.gen.ModelName(),
		PromptUsed:  llm.NotesPrompt,
	}
	if !batch.Complete() {
		s.log.Warn().
			Str("content_hash", doc.ContentHash).
			Int("failed", batch.Failed).
			Int("chunks", batch.Chunks).
			Msg("saving notes with failed chunks")
	}

	inserted, err := s.db.InsertStudyNote(ctx, note)
	if err != nil {
		return nil, fmt.Errorf("save notes: %w", err)
	}
	if !inserted {
		winner, err := s.db.GetStudyNoteByHash(ctx, doc.ContentHash)
		if err != nil {
			return nil, fmt.Errorf("lookup notes: %w", err)
		}
		if winner != nil {
			note = winner
		}
	}
	s.cacheNote(ctx, note)
	return &generated{note: note, batch: batch, persisted: true, existing: !inserted}, nil
}

// GetNotes returns the stored notes for a content hash.
func (s *StudyService) GetNotes(ctx context.Context, contentHash string) (*models.StudyNote, error) {
	contentHash = strings.ToLower(strings.TrimSpace(contentHash))
	if !ingestion.ValidContentHash(contentHash) {
		return nil, fmt.Errorf("%w: malformed content hash", ErrInvalidInput)
	}
	note, err := s.lookupNote(ctx, contentHash)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, fmt.Errorf("notes for %s: %w", contentHash, ErrNotFound)
	}
	return note, nil
}

func (s *StudyService) ListMaterials(ctx context.Context, userID string) ([]models.Material, error) {
	return s.documents.ListByUser(ctx, userID)
}

// MaterialFile returns the archived PDF of one of userID's materials.
func (s *StudyService) MaterialFile(ctx context.Context, userID, materialID string) (*models.Material, []byte, error) {
	if strings.TrimSpace(materialID) == "" {
		return nil, nil, fmt.Errorf("%w: material id is required", ErrInvalidInput)
	}
	return s.documents.File(ctx, userID, materialID)
}

// lookupNote reads through the cache into the datastore. A cache failure is
// logged and treated as a miss.
func (s *StudyService) lookupNote(ctx context.Context, contentHash string) (*models.StudyNote, error) {
	if s.cache != nil {
		note, err := s.cache.Get(ctx, contentHash)
		if err != nil {
			s.log.Warn().Err(err).Str("content_hash", contentHash).Msg("note cache read failed")
		} else if note != nil {
			return note, nil
		}
	}

	note, err := s.db.GetStudyNoteByHash(ctx, contentHash)
	if err != nil {
		return nil, fmt.Errorf("lookup notes: %w", err)
	}
	if note != nil {
		s.cacheNote(ctx, note)
	}
	return note, nil
}

func (s *StudyService) cacheNote(ctx context.Context, note *models.StudyNote) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, note); err != nil {
		s.log.Warn().Err(err).Str("content_hash", note.ContentHash).Msg("note cache write failed")
	}
}

func extractionError(err error) error {
	if errors.Is(err, ingestion.ErrNotPDF) || errors.Is(err, ingestion.ErrNoText) || errors.Is(err, ingestion.ErrInvalidArgument) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return fmt.Errorf("extract document: %w", err)
}
