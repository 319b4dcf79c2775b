package services

import (
	"context"
	"fmt"
	"strings"

	ingestion "github.com/markdave123-py/StudyCoach/internal/core/ingestion_engine"
	"github.com/markdave123-py/StudyCoach/internal/models"
)

// FlashcardRequest names the source either by ContentHash of stored notes
// or by raw Content.
type FlashcardRequest struct {
	ContentHash string
	Content     string
	MaterialID  string
	Category    string
}

type FlashcardsResult struct {
	ContentHash string             `json:"content_hash"`
	Flashcards  []models.Flashcard `json:"flashcards"`
	Cached      bool               `json:"cached"`
}

type QuizRequest struct {
	ContentHash string
	Content     string
	Subject     string
	Title       string
}

type QuizResult struct {
	Quiz   *models.Quiz `json:"quiz"`
	Cached bool         `json:"cached"`
}

// resolveSource returns the hash and text practice material is generated
// from. Content wins over the stored notes when both are given.
func (s *StudyService) resolveSource(contentHash, content string) (string, string, error) {
	contentHash = strings.ToLower(strings.TrimSpace(contentHash))
	if strings.TrimSpace(content) != "" {
		if contentHash == "" {
			contentHash = ingestion.ContentHash(content)
		}
		return contentHash, content, nil
	}
	if contentHash == "" {
		return "", "", fmt.Errorf("%w: content or content_hash required", ErrInvalidInput)
	}
	if !ingestion.ValidContentHash(contentHash) {
		return "", "", fmt.Errorf("%w: malformed content hash", ErrInvalidInput)
	}
	// content is loaded lazily by the caller only when generation is needed
	return contentHash, "", nil
}

func (s *StudyService) notesContent(ctx context.Context, contentHash string) (string, error) {
	note, err := s.lookupNote(ctx, contentHash)
	if err != nil {
		return "", err
	}
	if note == nil {
		return "", fmt.Errorf("notes for %s: %w", contentHash, ErrNotFound)
	}
	return note.Content, nil
}

// GenerateFlashcards returns the stored set for the source when one exists,
// otherwise generates and stores a new one.
func (s *StudyService) GenerateFlashcards(ctx context.Context, req FlashcardRequest) (*FlashcardsResult, error) {
	hash, content, err := s.resolveSource(req.ContentHash, req.Content)
	if err != nil {
		return nil, err
	}

	v, _, err := s.shared(ctx, "flashcards:"+hash, func(ctx context.Context) (any, error) {
		stored, err := s.db.GetFlashcardsByHash(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("lookup flashcards: %w", err)
		}
		if len(stored) > 0 {
			return &FlashcardsResult{ContentHash: hash, Flashcards: stored, Cached: true}, nil
		}

		if content == "" {
			if content, err = s.notesContent(ctx, hash); err != nil {
				return nil, err
			}
		}
		cards, err := s.gen.GenerateFlashcards(ctx, content, req.Category)
		if err != nil {
			return nil, err
		}
		for i := range cards {
			cards[i].ContentHash = hash
			cards[i].MaterialID = req.MaterialID
		}
		if err := s.db.InsertFlashcards(ctx, cards); err != nil {
			return nil, fmt.Errorf("save flashcards: %w", err)
		}
		s.log.Info().Str("content_hash", hash).Int("cards", len(cards)).Msg("flashcards generated")
		return &FlashcardsResult{ContentHash: hash, Flashcards: cards}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*FlashcardsResult), nil
}

func (s *StudyService) GetFlashcards(ctx context.Context, contentHash string) ([]models.Flashcard, error) {
	cards, err := s.db.GetFlashcardsByHash(ctx, strings.ToLower(strings.TrimSpace(contentHash)))
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("flashcards for %s: %w", contentHash, ErrNotFound)
	}
	return cards, nil
}

// GenerateQuiz returns the stored quiz for the source or generates one.
func (s *StudyService) GenerateQuiz(ctx context.Context, req QuizRequest) (*QuizResult, error) {
	hash, content, err := s.resolveSource(req.ContentHash, req.Content)
	if err != nil {
		return nil, err
	}

	v, _, err := s.shared(ctx, "quiz:"+hash, func(ctx context.Context) (any, error) {
		stored, err := s.db.GetQuizByHash(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("lookup quiz: %w", err)
		}
		if stored != nil {
			return &QuizResult{Quiz: stored, Cached: true}, nil
		}

		if content == "" {
			if content, err = s.notesContent(ctx, hash); err != nil {
				return nil, err
			}
		}
		questions, err := s.gen.GenerateQuiz(ctx, content, req.Subject, req.Title)
		if err != nil {
			return nil, err
		}
		quiz := &models.Quiz{
			ContentHash: hash,
			Subject:     req.Subject,
			Title:       req.Title,
			Questions:   questions,
		}
		inserted, err := s.db.InsertQuiz(ctx, quiz)
		if err != nil {
			return nil, fmt.Errorf("save quiz: %w", err)
		}
		if !inserted {
			// another process stored a quiz for this hash first
			winner, err := s.db.GetQuizByHash(ctx, hash)
			if err != nil {
				return nil, fmt.Errorf("lookup quiz: %w", err)
			}
			if winner != nil {
				return &QuizResult{Quiz: winner, Cached: true}, nil
			}
		}
		return &QuizResult{Quiz: quiz}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*QuizResult), nil
}

func (s *StudyService) GetQuiz(ctx context.Context, contentHash string) (*models.Quiz, error) {
	quiz, err := s.db.GetQuizByHash(ctx, strings.ToLower(strings.TrimSpace(contentHash)))
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, fmt.Errorf("quiz for %s: %w", contentHash, ErrNotFound)
	}
	return quiz, nil
}
