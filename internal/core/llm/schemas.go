package llm

import "github.com/markdave123-py/StudyCoach/internal/core"

var difficultyEnum = []string{"easy", "medium", "hard"}

func flashcardSchema() *core.ResponseSchema {
	card := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"front":      map[string]any{"type": "string", "description": "The question or prompt for the flashcard"},
			"back":       map[string]any{"type": "string", "description": "The answer or explanation for the flashcard"},
			"category":   map[string]any{"type": "string", "description": "The subject or topic category"},
			"difficulty": map[string]any{"type": "string", "enum": difficultyEnum, "description": "The difficulty level of the flashcard"},
		},
		"required":             []string{"front", "back", "category", "difficulty"},
		"additionalProperties": false,
	}
	return &core.ResponseSchema{
		Name: "flashcards",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"flashcards": map[string]any{"type": "array", "items": card},
			},
			"required":             []string{"flashcards"},
			"additionalProperties": false,
		},
	}
}

func quizSchema() *core.ResponseSchema {
	question := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{"type": "string", "description": "The question text"},
			"options": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Exactly four answer options",
			},
			"correct_answer": map[string]any{"type": "integer", "description": "Index (0-3) of the correct option"},
			"explanation":    map[string]any{"type": "string", "description": "Why the correct option is right"},
			"difficulty":     map[string]any{"type": "string", "enum": difficultyEnum},
		},
		"required":             []string{"question", "options", "correct_answer", "explanation", "difficulty"},
		"additionalProperties": false,
	}
	return &core.ResponseSchema{
		Name: "quiz",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"questions": map[string]any{"type": "array", "items": question},
			},
			"required":             []string{"questions"},
			"additionalProperties": false,
		},
	}
}
