package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/StudyCoach/internal/core"
	"github.com/markdave123-py/StudyCoach/internal/models"
)

// Mode is one of the four generation modes.
type Mode string

const (
	ModeNotes      Mode = "notes"
	ModeFlashcards Mode = "flashcards"
	ModeQuiz       Mode = "quiz"
	ModeQA         Mode = "qa"
)

const (
	DefaultModel   = "openai/gpt-4.1-nano"
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultTimeout = 60 * time.Second
)

// ModeSettings are the sampling parameters for one mode.
type ModeSettings struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Config is built once at startup and handed to the orchestrator and its
// backend.
type Config struct {
	Provider string // openrouter | gemini
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Referer  string
	AppTitle string

	Budget     Budget
	Notes      ModeSettings
	Flashcards ModeSettings
	Quiz       ModeSettings
	QA         ModeSettings
}

func DefaultConfig() Config {
	return Config{
		Provider:   "openrouter",
		BaseURL:    DefaultBaseURL,
		Model:      DefaultModel,
		Timeout:    DefaultTimeout,
		AppTitle:   "StudyCoach",
		Budget:     DefaultBudget(),
		Notes:      ModeSettings{MaxTokens: 8000, Temperature: 0.3, TopP: 0.9},
		Flashcards: ModeSettings{MaxTokens: 3000, Temperature: 0.1, TopP: 0.8},
		Quiz:       ModeSettings{MaxTokens: 4000, Temperature: 0.2, TopP: 0.8},
		QA:         ModeSettings{MaxTokens: 2000, Temperature: 0.3, TopP: 0.9},
	}
}

// Orchestrator builds prompts per mode, gates them on the token budget,
// sends them through a backend and validates the replies.
type Orchestrator struct {
	backend   core.CompletionBackend
	estimator *Estimator
	cfg       Config
	log       zerolog.Logger
}

// NewOrchestrator wires an orchestrator around an existing backend.
func NewOrchestrator(backend core.CompletionBackend, cfg Config, log zerolog.Logger) (*Orchestrator, error) {
	if backend == nil {
		return nil, errors.New("llm: nil completion backend")
	}
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	cfg.Notes = fillSettings(cfg.Notes, def.Notes)
	cfg.Flashcards = fillSettings(cfg.Flashcards, def.Flashcards)
	cfg.Quiz = fillSettings(cfg.Quiz, def.Quiz)
	cfg.QA = fillSettings(cfg.QA, def.QA)

	est := NewEstimator(cfg.Budget)
	cfg.Budget = est.Budget()

	return &Orchestrator{
		backend:   backend,
		estimator: est,
		cfg:       cfg,
		log:       log.With().Str("component", "llm").Str("model", backend.Model()).Logger(),
	}, nil
}

// New builds the backend named by cfg.Provider and an orchestrator on top.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Orchestrator, error) {
	var (
		backend core.CompletionBackend
		err     error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", "openrouter", "openai":
		backend, err = NewOpenRouterBackend(cfg)
	case "gemini":
		backend, err = NewGeminiBackend(ctx, cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewOrchestrator(backend, cfg, log)
}

func fillSettings(s, def ModeSettings) ModeSettings {
	if s.MaxTokens <= 0 {
		s.MaxTokens = def.MaxTokens
	}
	if s.Temperature <= 0 {
		s.Temperature = def.Temperature
	}
	if s.TopP <= 0 {
		s.TopP = def.TopP
	}
	return s
}

func (o *Orchestrator) ModelName() string { return o.backend.Model() }
func (o *Orchestrator) Estimator() *Estimator { return o.estimator }

func (o *Orchestrator) settings(mode Mode) ModeSettings {
	var s ModeSettings
	switch mode {
	case ModeNotes:
		s = o.cfg.Notes
	case ModeFlashcards:
		s = o.cfg.Flashcards
	case ModeQuiz:
		s = o.cfg.Quiz
	default:
		s = o.cfg.QA
	}
	s.MaxTokens = min(s.MaxTokens, o.cfg.Budget.MaxOutputTokens)
	return s
}

// call runs one generation: budget gate, request with timeout, status
// classification. inputs are the raw values substituted into template.
func (o *Orchestrator) call(ctx context.Context, mode Mode, template, prompt string, schema *core.ResponseSchema, inputs ...string) (string, error) {
	estimated := o.estimator.EstimateTokens(template)
	for _, in := range inputs {
		estimated += o.estimator.EstimateTokens(in)
	}
	if estimated > o.cfg.Budget.MaxInputTokens {
		o.log.Warn().
			Str("mode", string(mode)).
			Int("estimated_tokens", estimated).
			Int("max_input_tokens", o.cfg.Budget.MaxInputTokens).
			Msg("content too large, request not sent")
		return "", newError(mode, KindContentTooLarge,
			fmt.Errorf("estimated %d input tokens exceeds budget of %d", estimated, o.cfg.Budget.MaxInputTokens))
	}

	s := o.settings(mode)
	reqCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	start := time.Now()
	out, err := o.backend.Complete(reqCtx, core.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
		TopP:        s.TopP,
		Schema:      schema,
	})
	if err != nil {
		gerr := classify(mode, err)
		o.log.Error().
			Str("mode", string(mode)).
			Str("reason", string(gerr.Kind)).
			Int("status", gerr.StatusCode).
			Str("body", truncate(gerr.Body, 500)).
			Err(err).
			Msg("generation request failed")
		return "", gerr
	}

	o.log.Info().
		Str("mode", string(mode)).
		Int("input_tokens", EstimateTokens(prompt)).
		Int("output_tokens", EstimateTokens(out)).
		Float64("estimated_cost", o.estimator.tokenCost(EstimateTokens(prompt), EstimateTokens(out))).
		Dur("elapsed", time.Since(start)).
		Msg("generation completed")
	return out, nil
}

// GenerateNotes produces markdown study notes for one chunk.
func (o *Orchestrator) GenerateNotes(ctx context.Context, chunk string) (string, error) {
	if strings.TrimSpace(chunk) == "" {
		return "", newError(ModeNotes, KindInvalidArgument, errors.New("empty chunk"))
	}
	out, err := o.call(ctx, ModeNotes, NotesPrompt, renderNotes(chunk), nil, chunk)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", o.malformed(ModeNotes, errNoAnswer)
	}
	return out, nil
}

// GenerateFlashcards produces a validated batch of flashcards. category is
// used for cards the model returned without one.
func (o *Orchestrator) GenerateFlashcards(ctx context.Context, content, category string) ([]models.Flashcard, error) {
	if strings.TrimSpace(content) == "" {
		return nil, newError(ModeFlashcards, KindInvalidArgument, errors.New("empty content"))
	}
	out, err := o.call(ctx, ModeFlashcards, FlashcardPrompt, renderFlashcards(content), flashcardSchema(), content)
	if err != nil {
		return nil, err
	}
	cards, err := parseFlashcards(out, category)
	if err != nil {
		return nil, o.malformed(ModeFlashcards, err)
	}
	o.log.Debug().Int("cards", len(cards)).Msg("flashcards validated")
	return cards, nil
}

// GenerateQuiz produces exactly QuizSize questions or fails.
func (o *Orchestrator) GenerateQuiz(ctx context.Context, content, subject, title string) ([]models.QuizQuestion, error) {
	if strings.TrimSpace(content) == "" {
		return nil, newError(ModeQuiz, KindInvalidArgument, errors.New("empty content"))
	}
	prompt := renderQuiz(content, subject, title)
	out, err := o.call(ctx, ModeQuiz, QuizPrompt, prompt, quizSchema(), content, subject, title)
	if err != nil {
		return nil, err
	}
	questions, err := parseQuiz(out)
	if err != nil {
		return nil, o.malformed(ModeQuiz, err)
	}
	return questions, nil
}

// AnswerQuestion answers question from notes and strips the trailing recap
// the model tends to append.
func (o *Orchestrator) AnswerQuestion(ctx context.Context, notes, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", newError(ModeQA, KindInvalidArgument, errors.New("empty question"))
	}
	out, err := o.call(ctx, ModeQA, QAPrompt, renderQA(notes, question), nil, notes, question)
	if err != nil {
		return "", err
	}
	answer := cleanAnswer(out)
	if answer == "" {
		return "", o.malformed(ModeQA, errNoAnswer)
	}
	return answer, nil
}

// TestConnection sends a tiny prompt and reports whether the provider
// accepted it.
func (o *Orchestrator) TestConnection(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	_, err := o.backend.Complete(reqCtx, core.CompletionRequest{Prompt: "Hello", MaxTokens: 10})
	if err != nil {
		o.log.Warn().Err(err).Msg("provider connection test failed")
		return false
	}
	return true
}

func (o *Orchestrator) malformed(mode Mode, err error) error {
	o.log.Error().Str("mode", string(mode)).Err(err).Msg("invalid model reply")
	return newError(mode, KindMalformedResponse, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
