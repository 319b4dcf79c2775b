package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/StudyCoach/internal/services"
)

// MaxUploadBytes bounds an uploaded PDF.
const MaxUploadBytes = 50 << 20

type DocumentHandler struct {
	svc StudyAPI
	log zerolog.Logger
}

func NewDocumentHandler(svc StudyAPI, log zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{svc: svc, log: log.With().Str("handler", "documents").Logger()}
}

type notesResponse struct {
	Status        string    `json:"status"`
	Message       string    `json:"message,omitempty"`
	Content       string    `json:"content"`
	ContentHash   string    `json:"content_hash"`
	StudyNoteID   string    `json:"study_note_id,omitempty"`
	MaterialID    string    `json:"material_id,omitempty"`
	ModelUsed     string    `json:"model_used"`
	GeneratedAt   time.Time `json:"generated_at"`
	Saved         bool      `json:"saved"`
	FailedChunks  int       `json:"failed_chunks,omitempty"`
	EstimatedCost float64   `json:"estimated_cost,omitempty"`
}

// readPDF pulls the "file" part out of a multipart upload.
func (h *DocumentHandler) readPDF(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return "", nil, false
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		writeError(w, http.StatusBadRequest, "File must be a PDF")
		return "", nil, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return "", nil, false
	}
	return name, data, true
}

// GenerateHash returns the content hash of an uploaded PDF.
func (h *DocumentHandler) GenerateHash(w http.ResponseWriter, r *http.Request) {
	_, data, ok := h.readPDF(w, r)
	if !ok {
		return
	}
	hash, err := h.svc.GenerateHash(r.Context(), data)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content_hash": hash})
}

// ProcessPDF returns existing notes for the upload or generates new ones.
func (h *DocumentHandler) ProcessPDF(w http.ResponseWriter, r *http.Request) {
	name, data, ok := h.readPDF(w, r)
	if !ok {
		return
	}
	subject := strings.TrimSpace(r.FormValue("subject"))
	if subject == "" {
		writeError(w, http.StatusBadRequest, "Subject not provided")
		return
	}

	res, err := h.svc.ProcessPDF(r.Context(), services.ProcessRequest{
		UserID:      userID(r),
		Subject:     subject,
		FileName:    name,
		Data:        data,
		ContentHash: r.FormValue("content_hash"),
	})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	resp := notesResponse{
		Status:        "success",
		Message:       res.Message,
		Content:       res.Note.Content,
		ContentHash:   res.Note.ContentHash,
		StudyNoteID:   res.Note.ID,
		ModelUsed:     res.Note.ModelUsed,
		GeneratedAt:   res.Note.CreatedAt,
		Saved:         res.Persisted,
		FailedChunks:  res.FailedChunks,
		EstimatedCost: res.EstimatedCost,
	}
	if resp.GeneratedAt.IsZero() {
		resp.GeneratedAt = time.Now().UTC()
	}
	if res.Material != nil {
		resp.MaterialID = res.Material.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DocumentHandler) GetNotes(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.GetNotes(r.Context(), chi.URLParam(r, "content_hash"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, notesResponse{
		Status:      "success",
		Content:     note.Content,
		ContentHash: note.ContentHash,
		StudyNoteID: note.ID,
		ModelUsed:   note.ModelUsed,
		GeneratedAt: note.CreatedAt,
		Saved:       true,
	})
}

func (h *DocumentHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.svc.ListMaterials(r.Context(), userID(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

// MaterialFile streams back the archived PDF of one of the caller's materials.
func (h *DocumentHandler) MaterialFile(w http.ResponseWriter, r *http.Request) {
	m, data, err := h.svc.MaterialFile(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(m.FileName)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
