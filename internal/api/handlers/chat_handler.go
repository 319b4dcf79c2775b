package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/StudyCoach/internal/services"
)

type ChatHandler struct {
	svc StudyAPI
	log zerolog.Logger
}

func NewChatHandler(svc StudyAPI, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, log: log.With().Str("handler", "qa").Logger()}
}

type askRequest struct {
	Question    string `json:"question"`
	StudyNoteID string `json:"study_note_id"`
	MaterialID  string `json:"material_id"`
}

// Ask answers a question from the caller's notes and stores the exchange.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	session, err := h.svc.AskQuestion(r.Context(), services.QARequest{
		UserID:      userID(r),
		Question:    req.Question,
		StudyNoteID: req.StudyNoteID,
		MaterialID:  req.MaterialID,
	})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessions, err := h.svc.ListQASessions(r.Context(), userID(r), q.Get("study_note_id"), q.Get("material_id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteQASession(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		fail(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
