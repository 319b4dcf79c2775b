package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdave123-py/StudyCoach/internal/models"
)

// QARequest asks a question against one source: StudyNoteID or MaterialID.
type QARequest struct {
	UserID      string
	Question    string
	StudyNoteID string
	MaterialID  string
}

// AskQuestion answers a question from the source's notes and records the
// exchange.
func (s *StudyService) AskQuestion(ctx context.Context, req QARequest) (*models.QASession, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	if (req.StudyNoteID == "") == (req.MaterialID == "") {
		return nil, fmt.Errorf("%w: exactly one of study_note_id or material_id is required", ErrInvalidInput)
	}

	notes, err := s.sourceNotes(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, err := s.gen.AnswerQuestion(ctx, notes.Content, question)
	if err != nil {
		return nil, err
	}

	session := &models.QASession{
		UserID:      req.UserID,
		Question:    question,
		Answer:      answer,
		StudyNoteID: req.StudyNoteID,
		MaterialID:  req.MaterialID,
	}
	if err := s.db.InsertQASession(ctx, session); err != nil {
		return nil, fmt.Errorf("save qa session: %w", err)
	}
	return session, nil
}

func (s *StudyService) sourceNotes(ctx context.Context, req QARequest) (*models.StudyNote, error) {
	if req.StudyNoteID != "" {
		note, err := s.db.GetStudyNoteByID(ctx, req.StudyNoteID)
		if err != nil {
			return nil, fmt.Errorf("lookup notes: %w", err)
		}
		if note == nil {
			return nil, fmt.Errorf("study note %s: %w", req.StudyNoteID, ErrNotFound)
		}
		return note, nil
	}

	material, err := s.db.GetMaterialByID(ctx, req.MaterialID)
	if err != nil {
		return nil, fmt.Errorf("lookup material: %w", err)
	}
	if material == nil || (req.UserID != "" && material.UserID != req.UserID) {
		return nil, fmt.Errorf("material %s: %w", req.MaterialID, ErrNotFound)
	}
	note, err := s.lookupNote(ctx, material.ContentHash)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, fmt.Errorf("notes for material %s: %w", req.MaterialID, ErrNotFound)
	}
	return note, nil
}

// ListQASessions returns the caller's sessions for one source, oldest first.
func (s *StudyService) ListQASessions(ctx context.Context, userID, studyNoteID, materialID string) ([]models.QASession, error) {
	if (studyNoteID == "") == (materialID == "") {
		return nil, fmt.Errorf("%w: exactly one of study_note_id or material_id is required", ErrInvalidInput)
	}
	all, err := s.db.ListQASessions(ctx, studyNoteID, materialID)
	if err != nil {
		return nil, err
	}
	out := make([]models.QASession, 0, len(all))
	for _, qa := range all {
		if userID == "" || qa.UserID == userID {
			out = append(out, qa)
		}
	}
	return out, nil
}

// DeleteQASession deletes one of userID's sessions. Sessions owned by other
// users are reported as ErrNotFound.
func (s *StudyService) DeleteQASession(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.db.DeleteQASession(ctx, userID, id)
}
