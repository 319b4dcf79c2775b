package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/StudyCoach/internal/core"
	ingestion "github.com/markdave123-py/StudyCoach/internal/core/ingestion_engine"
	"github.com/markdave123-py/StudyCoach/internal/models"
)

type fakeDB struct {
	mu         sync.Mutex
	materials  []models.Material
	notes      map[string]*models.StudyNote
	flashcards map[string][]models.Flashcard
	quizzes    map[string]*models.Quiz
	qa         []models.QASession

	failCreateMaterial bool
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		notes:      map[string]*models.StudyNote{},
		flashcards: map[string][]models.Flashcard{},
		quizzes:    map[string]*models.Quiz{},
	}
}

var _ core.DbClient = (*fakeDB)(nil)

func (f *fakeDB) CreateMaterial(_ context.Context, m *models.Material) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateMaterial {
		return errors.New("insert material: connection reset")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now()
	f.materials = append(f.materials, *m)
	return nil
}

func (f *fakeDB) GetMaterialByID(_ context.Context, id string) (*models.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.materials {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) ListMaterialsByUser(_ context.Context, userID string) ([]models.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Material
	for _, m := range f.materials {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeDB) GetStudyNoteByHash(_ context.Context, hash string) (*models.StudyNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.notes[hash]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeDB) GetStudyNoteByID(_ context.Context, id string) (*models.StudyNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notes {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) InsertStudyNote(_ context.Context, n *models.StudyNote) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.notes[n.ContentHash]; ok {
		return false, nil
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	cp := *n
	f.notes[n.ContentHash] = &cp
	return true, nil
}

func (f *fakeDB) InsertFlashcards(_ context.Context, cards []models.Flashcard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range cards {
		f.flashcards[c.ContentHash] = append(f.flashcards[c.ContentHash], c)
	}
	return nil
}

func (f *fakeDB) GetFlashcardsByHash(_ context.Context, hash string) ([]models.Flashcard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Flashcard(nil), f.flashcards[hash]...), nil
}

func (f *fakeDB) InsertQuiz(_ context.Context, q *models.Quiz) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.quizzes[q.ContentHash]; ok {
		return false, nil
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	f.quizzes[q.ContentHash] = q
	return true, nil
}

func (f *fakeDB) GetQuizByHash(_ context.Context, hash string) (*models.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quizzes[hash], nil
}

func (f *fakeDB) InsertQASession(_ context.Context, s *models.QASession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	f.qa = append(f.qa, *s)
	return nil
}

func (f *fakeDB) ListQASessions(_ context.Context, noteID, materialID string) ([]models.QASession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.QASession
	for _, s := range f.qa {
		if (noteID != "" && s.StudyNoteID == noteID) || (noteID == "" && s.MaterialID == materialID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeDB) DeleteQASession(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.qa {
		if s.ID == id && s.UserID == userID {
			f.qa = append(f.qa[:i], f.qa[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeDB) Close() error { return nil }

// fakeIngestor treats the upload bytes as the extracted text and splits it
// on "|" into chunks.
type fakeIngestor struct{}

func (fakeIngestor) Ingest(_ context.Context, data []byte, _ string) (*ingestion.IngestedDocument, error) {
	text := string(data)
	if !strings.HasPrefix(text, "%PDF") {
		return nil, ingestion.ErrNotPDF
	}
	text = strings.TrimPrefix(text, "%PDF")
	return &ingestion.IngestedDocument{
		Text:        text,
		ContentHash: ingestion.ContentHash(text),
		Pages:       1,
		Chunks:      strings.Split(text, "|"),
	}, nil
}

func (i fakeIngestor) Hash(ctx context.Context, data []byte, ct string) (string, error) {
	doc, err := i.Ingest(ctx, data, ct)
	if err != nil {
		return "", err
	}
	return doc.ContentHash, nil
}

type fakeGenerator struct {
	notesCalls atomic.Int32
	cardCalls  atomic.Int32
	quizCalls  atomic.Int32
	qaCalls    atomic.Int32
	delay      time.Duration
}

func (g *fakeGenerator) GenerateNotes(ctx context.Context, chunk string) (string, error) {
	g.notesCalls.Add(1)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(g.delay):
	}
	if strings.Contains(chunk, "FAIL") {
		return "", errors.New("provider down")
	}
	return "## " + chunk, nil
}

func (g *fakeGenerator) GenerateFlashcards(_ context.Context, content, category string) ([]models.Flashcard, error) {
	g.cardCalls.Add(1)
	return []models.Flashcard{
		{Front: "What is " + content + "?", Back: "It is.", Category: category, Difficulty: "easy"},
		{Front: "Why?", Back: "Because.", Category: category, Difficulty: "medium"},
	}, nil
}

func (g *fakeGenerator) GenerateQuiz(_ context.Context, _, _, _ string) ([]models.QuizQuestion, error) {
	g.quizCalls.Add(1)
	qs := make([]models.QuizQuestion, 5)
	for i := range qs {
		qs[i] = models.QuizQuestion{ID: "q_" + string(rune('1'+i)), Question: "Q?", Options: []string{"a", "b", "c", "d"}, Difficulty: "easy"}
	}
	return qs, nil
}

func (g *fakeGenerator) AnswerQuestion(_ context.Context, notes, question string) (string, error) {
	g.qaCalls.Add(1)
	return "From your notes: " + notes, nil
}

func (g *fakeGenerator) ModelName() string { return "fake-model" }

type fakeStorage struct {
	mu      sync.Mutex
	keys    []string
	deleted []string
	objects map[string][]byte
}

func (s *fakeStorage) UploadFile(_ context.Context, bucket, key string, data io.Reader, _ string) (string, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.keys = append(s.keys, key)
	s.objects[key] = b
	return "https://" + bucket + "/" + key, nil
}

func (s *fakeStorage) DeleteFile(_ context.Context, _, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) GetFile(_ context.Context, _, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, errors.New("no such key: " + key)
	}
	return b, nil
}
