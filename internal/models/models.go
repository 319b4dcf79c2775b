package models

import (
	"time"
)

// Material represents an uploaded PDF and where its original bytes live.
type Material struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Subject     string    `db:"subject" json:"subject"`
	FileName    string    `db:"file_name" json:"file_name"`
	ContentHash string    `db:"content_hash" json:"content_hash"`
	StorageURL  string    `db:"storage_url" json:"storage_url"` // empty when object storage is disabled
	PageCount   int       `db:"page_count" json:"page_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// StudyNote is the generated notes document for one content hash.
type StudyNote struct {
	ID          string    `db:"id" json:"id"`
	ContentHash string    `db:"content_hash" json:"content_hash"`
	Content     string    `db:"content" json:"content"` // markdown
	ModelUsed   string    `db:"model_used" json:"model_used"`
	PromptUsed  string    `db:"prompt_used" json:"prompt_used"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Flashcard is a single question/answer card.
type Flashcard struct {
	ID          string    `db:"id" json:"id,omitempty"`
	ContentHash string    `db:"content_hash" json:"content_hash,omitempty"`
	MaterialID  string    `db:"material_id" json:"material_id,omitempty"`
	Front       string    `db:"front" json:"front"`
	Back        string    `db:"back" json:"back"`
	Category    string    `db:"category" json:"category"`
	Difficulty  string    `db:"difficulty" json:"difficulty"` // easy | medium | hard
	CreatedAt   time.Time `db:"created_at" json:"created_at,omitempty"`
}

// QuizQuestion is one multiple-choice question. ID is q_1..q_5 within a quiz.
type QuizQuestion struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
}

// Quiz groups the five questions generated for a content hash.
type Quiz struct {
	ID          string         `db:"id" json:"id"`
	ContentHash string         `db:"content_hash" json:"content_hash"`
	Subject     string         `db:"subject" json:"subject"`
	Title       string         `db:"title" json:"title"`
	Questions   []QuizQuestion `db:"questions" json:"questions"` // stored as JSON text
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// QASession is one answered question. Exactly one of StudyNoteID and
// MaterialID is set.
type QASession struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Question    string    `db:"question" json:"question"`
	Answer      string    `db:"answer" json:"answer"`
	StudyNoteID string    `db:"study_note_id" json:"study_note_id,omitempty"`
	MaterialID  string    `db:"material_id" json:"material_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
