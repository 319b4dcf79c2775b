package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/markdave123-py/StudyCoach/internal/models"
)

// QuizSize is the exact number of questions a quiz must contain.
const QuizSize = 5

const (
	defaultCategory   = "General"
	defaultDifficulty = "medium"
)

var (
	errNoFlashcards = errors.New("no valid flashcards in response")
	errNoAnswer     = errors.New("empty answer")
)

type rawFlashcard struct {
	Front      *string `json:"front"`
	Back       *string `json:"back"`
	Category   *string `json:"category"`
	Difficulty *string `json:"difficulty"`
}

type rawQuizQuestion struct {
	Question      *string  `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correct_answer"`
	Explanation   *string  `json:"explanation"`
	Difficulty    *string  `json:"difficulty"`
}

// parseFlashcards decodes a {"flashcards": [...]} reply. Cards without a
// non-blank front and back are dropped; category and difficulty are
// defaulted when missing.
func parseFlashcards(content, category string) ([]models.Flashcard, error) {
	items, err := decodeArray(content, "flashcards")
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(category) == "" {
		category = defaultCategory
	}

	cards := make([]models.Flashcard, 0, len(items))
	for _, item := range items {
		var rc rawFlashcard
		if err := json.Unmarshal(item, &rc); err != nil {
			continue
		}
		if rc.Front == nil || rc.Back == nil {
			continue
		}
		front, back := strings.TrimSpace(*rc.Front), strings.TrimSpace(*rc.Back)
		if front == "" || back == "" {
			continue
		}

		card := models.Flashcard{
			Front:      front,
			Back:       back,
			Category:   category,
			Difficulty: defaultDifficulty,
		}
		if rc.Category != nil && strings.TrimSpace(*rc.Category) != "" {
			card.Category = strings.TrimSpace(*rc.Category)
		}
		if rc.Difficulty != nil {
			if d, ok := normalizeDifficulty(*rc.Difficulty); ok {
				card.Difficulty = d
			}
		}
		cards = append(cards, card)
	}

	if len(cards) == 0 {
		return nil, errNoFlashcards
	}
	return cards, nil
}

// parseQuiz decodes a {"questions": [...]} reply. The reply must hold
// exactly QuizSize questions and every one must be valid.
func parseQuiz(content string) ([]models.QuizQuestion, error) {
	items, err := decodeArray(content, "questions")
	if err != nil {
		return nil, err
	}
	if len(items) != QuizSize {
		return nil, fmt.Errorf("expected %d questions, got %d", QuizSize, len(items))
	}

	out := make([]models.QuizQuestion, 0, QuizSize)
	for i, item := range items {
		q, err := validateQuestion(item)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		q.ID = fmt.Sprintf("q_%d", i+1)
		out = append(out, q)
	}
	return out, nil
}

func validateQuestion(item json.RawMessage) (models.QuizQuestion, error) {
	var rq rawQuizQuestion
	if err := json.Unmarshal(item, &rq); err != nil {
		return models.QuizQuestion{}, fmt.Errorf("decode: %w", err)
	}
	switch {
	case rq.Question == nil || strings.TrimSpace(*rq.Question) == "":
		return models.QuizQuestion{}, errors.New("missing question")
	case len(rq.Options) != 4:
		return models.QuizQuestion{}, fmt.Errorf("want 4 options, got %d", len(rq.Options))
	case rq.CorrectAnswer == nil:
		return models.QuizQuestion{}, errors.New("missing correct_answer")
	case *rq.CorrectAnswer < 0 || *rq.CorrectAnswer > 3:
		return models.QuizQuestion{}, fmt.Errorf("correct_answer %d out of range", *rq.CorrectAnswer)
	case rq.Explanation == nil || strings.TrimSpace(*rq.Explanation) == "":
		return models.QuizQuestion{}, errors.New("missing explanation")
	case rq.Difficulty == nil:
		return models.QuizQuestion{}, errors.New("missing difficulty")
	}

	difficulty, ok := normalizeDifficulty(*rq.Difficulty)
	if !ok {
		return models.QuizQuestion{}, fmt.Errorf("unknown difficulty %q", *rq.Difficulty)
	}

	options := make([]string, len(rq.Options))
	for i, o := range rq.Options {
		if o = strings.TrimSpace(o); o == "" {
			return models.QuizQuestion{}, fmt.Errorf("option %d is empty", i)
		}
		options[i] = o
	}

	return models.QuizQuestion{
		Question:      strings.TrimSpace(*rq.Question),
		Options:       options,
		CorrectAnswer: *rq.CorrectAnswer,
		Explanation:   strings.TrimSpace(*rq.Explanation),
		Difficulty:    difficulty,
	}, nil
}

// decodeArray parses content as a JSON object and returns the array stored
// under key, item by item.
func decodeArray(content, key string) ([]json.RawMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &envelope); err != nil {
		return nil, fmt.Errorf("parse structured reply: %w", err)
	}
	raw, ok := envelope[key]
	if !ok {
		return nil, fmt.Errorf("missing %q array", key)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, fmt.Errorf("%q is not an array", key)
	}
	return items, nil
}

func normalizeDifficulty(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, d := range difficultyEnum {
		if s == d {
			return s, true
		}
	}
	return "", false
}

var codeFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// stripCodeFence unwraps a reply the model put in a ```json block.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

var (
	inBriefRe    = regexp.MustCompile(`(?is)\n*-{3,}[ \t]*\n+[ \t]*\*\*in brief:?\*\*.*$`)
	trailingHRRe = regexp.MustCompile(`\n*-{3,}\s*$`)
	extraBlankRe = regexp.MustCompile(`\n{3,}`)
)

// cleanAnswer removes the recap models append after a horizontal rule and
// collapses runs of blank lines.
func cleanAnswer(answer string) string {
	answer = strings.ReplaceAll(answer, "\r\n", "\n")
	answer = inBriefRe.ReplaceAllString(answer, "")
	answer = trailingHRRe.ReplaceAllString(answer, "")
	answer = extraBlankRe.ReplaceAllString(answer, "\n\n")
	return strings.TrimSpace(answer)
}
