package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/StudyCoach/internal/services"
)

type PracticeHandler struct {
	svc StudyAPI
	log zerolog.Logger
}

func NewPracticeHandler(svc StudyAPI, log zerolog.Logger) *PracticeHandler {
	return &PracticeHandler{svc: svc, log: log.With().Str("handler", "practice").Logger()}
}

type flashcardsRequest struct {
	ContentHash string `json:"content_hash"`
	Content     string `json:"content"`
	MaterialID  string `json:"material_id"`
	Category    string `json:"category"`
}

type quizRequest struct {
	ContentHash string `json:"content_hash"`
	Content     string `json:"content"`
	Subject     string `json:"subject"`
	Title       string `json:"title"`
}

func (h *PracticeHandler) CreateFlashcards(w http.ResponseWriter, r *http.Request) {
	var req flashcardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Category == "" {
		req.Category = "General"
	}

	res, err := h.svc.GenerateFlashcards(r.Context(), services.FlashcardRequest{
		ContentHash: req.ContentHash,
		Content:     req.Content,
		MaterialID:  req.MaterialID,
		Category:    req.Category,
	})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	status := http.StatusCreated
	if res.Cached {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (h *PracticeHandler) GetFlashcards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.GetFlashcards(r.Context(), chi.URLParam(r, "content_hash"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *PracticeHandler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	res, err := h.svc.GenerateQuiz(r.Context(), services.QuizRequest{
		ContentHash: req.ContentHash,
		Content:     req.Content,
		Subject:     req.Subject,
		Title:       req.Title,
	})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	status := http.StatusCreated
	if res.Cached {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (h *PracticeHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.svc.GetQuiz(r.Context(), chi.URLParam(r, "content_hash"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}
