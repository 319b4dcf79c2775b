package core

import (
	"context"
	"errors"
	"io"

	"github.com/markdave123-py/StudyCoach/internal/models"
)

// ErrNotFound is returned by mutations that matched no record.
var ErrNotFound = errors.New("record not found")

// DbClient defines all persistence operations the services need.
// Lookups return (nil, nil) when nothing matches.
type DbClient interface {
	CreateMaterial(ctx context.Context, m *models.Material) error
	GetMaterialByID(ctx context.Context, id string) (*models.Material, error)
	ListMaterialsByUser(ctx context.Context, userID string) ([]models.Material, error)

	GetStudyNoteByHash(ctx context.Context, contentHash string) (*models.StudyNote, error)
	GetStudyNoteByID(ctx context.Context, id string) (*models.StudyNote, error)
	// InsertStudyNote reports false when a note for the same hash already exists.
	InsertStudyNote(ctx context.Context, note *models.StudyNote) (bool, error)

	InsertFlashcards(ctx context.Context, cards []models.Flashcard) error
	GetFlashcardsByHash(ctx context.Context, contentHash string) ([]models.Flashcard, error)

	InsertQuiz(ctx context.Context, quiz *models.Quiz) (bool, error)
	GetQuizByHash(ctx context.Context, contentHash string) (*models.Quiz, error)

	InsertQASession(ctx context.Context, s *models.QASession) error
	ListQASessions(ctx context.Context, studyNoteID, materialID string) ([]models.QASession, error)
	DeleteQASession(ctx context.Context, userID, id string) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}

// NoteCache is a read-through cache in front of the study notes table.
type NoteCache interface {
	Get(ctx context.Context, contentHash string) (*models.StudyNote, error)
	Set(ctx context.Context, note *models.StudyNote) error
}
