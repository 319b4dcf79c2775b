package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	middleware "github.com/markdave123-py/StudyCoach/internal/api/middlewares"
	"github.com/markdave123-py/StudyCoach/internal/core/llm"
	"github.com/markdave123-py/StudyCoach/internal/models"
	"github.com/markdave123-py/StudyCoach/internal/services"
)

// StudyAPI is the service surface the handlers call.
type StudyAPI interface {
	GenerateHash(ctx context.Context, data []byte) (string, error)
	ProcessPDF(ctx context.Context, req services.ProcessRequest) (*services.NotesResult, error)
	GetNotes(ctx context.Context, contentHash string) (*models.StudyNote, error)
	ListMaterials(ctx context.Context, userID string) ([]models.Material, error)
	MaterialFile(ctx context.Context, userID, materialID string) (*models.Material, []byte, error)

	GenerateFlashcards(ctx context.Context, req services.FlashcardRequest) (*services.FlashcardsResult, error)
	GetFlashcards(ctx context.Context, contentHash string) ([]models.Flashcard, error)
	GenerateQuiz(ctx context.Context, req services.QuizRequest) (*services.QuizResult, error)
	GetQuiz(ctx context.Context, contentHash string) (*models.Quiz, error)

	AskQuestion(ctx context.Context, req services.QARequest) (*models.QASession, error)
	ListQASessions(ctx context.Context, userID, studyNoteID, materialID string) ([]models.QASession, error)
	DeleteQASession(ctx context.Context, userID, id string) error
}

var _ StudyAPI = (*services.StudyService)(nil)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps service and generation errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrHashMismatch):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrGenerationFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	switch llm.KindOf(err) {
	case "":
		return http.StatusInternalServerError
	case llm.KindInvalidArgument, llm.KindBadRequest:
		return http.StatusBadRequest
	case llm.KindContentTooLarge:
		return http.StatusRequestEntityTooLarge
	case llm.KindRateLimited:
		return http.StatusTooManyRequests
	case llm.KindPaymentRequired:
		return http.StatusPaymentRequired
	default:
		return http.StatusBadGateway
	}
}

// fail logs err and writes the mapped status. Internal errors are not echoed
// to the client.
func fail(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	status := statusFor(err)
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request failed")

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeError(w, status, msg)
}

func userID(r *http.Request) string {
	id, _ := middleware.UserIDFromContext(r.Context())
	return id
}
