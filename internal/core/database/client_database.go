package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/markdave123-py/StudyCoach/internal/config"
	"github.com/markdave123-py/StudyCoach/internal/core"
	"github.com/markdave123-py/StudyCoach/internal/models"
)

var _ core.DbClient = (*DatabaseClient)(nil)

type DatabaseClient struct {
	db     *sql.DB
	driver string
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	switch cfg.DatabaseDriver {
	case DriverSQLite:
		return Open(ctx, DriverSQLite, cfg.DatabaseURL)
	case DriverPostgres, "":
		dsn, err := postgresDSN(cfg.DatabaseURL, cfg.SslCertPath)
		if err != nil {
			return nil, err
		}
		return Open(ctx, DriverPostgres, dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DatabaseDriver)
	}
}

// postgresDSN appends certificate verification params when a CA cert is configured.
func postgresDSN(raw, certPath string) (string, error) {
	if certPath == "" {
		return raw, nil
	}
	if _, err := os.Stat(certPath); err != nil {
		return "", fmt.Errorf("ssl cert not accessible at %q: %w", certPath, err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", certPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Open connects with the given driver, pings and bootstraps the schema.
func Open(ctx context.Context, driver, dsn string) (*DatabaseClient, error) {
	sqlDriver := "pgx"
	if driver == DriverSQLite {
		sqlDriver = "sqlite3"
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if driver == DriverSQLite {
		// one writer; also keeps a :memory: database alive across calls
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetConnMaxIdleTime(10 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db, driver: driver}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *DatabaseClient) q(query string) string {
	return rebind(c.driver, query)
}

// Materials

func (c *DatabaseClient) CreateMaterial(ctx context.Context, m *models.Material) error {
	if m == nil {
		return errors.New("nil material")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = timeOrNow(m.CreatedAt)

	const q = `
		INSERT INTO materials (id, user_id, subject, file_name, content_hash, storage_url, page_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := c.db.ExecContext(ctx, c.q(q),
		m.ID, m.UserID, m.Subject, m.FileName, m.ContentHash, m.StorageURL, m.PageCount, m.CreatedAt)
	return err
}

func (c *DatabaseClient) GetMaterialByID(ctx context.Context, id string) (*models.Material, error) {
	const q = `
		SELECT id, user_id, subject, file_name, content_hash, storage_url, page_count, created_at
		FROM materials WHERE id = $1
	`
	var m models.Material
	err := c.db.QueryRowContext(ctx, c.q(q), id).Scan(
		&m.ID, &m.UserID, &m.Subject, &m.FileName, &m.ContentHash, &m.StorageURL, &m.PageCount, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *DatabaseClient) ListMaterialsByUser(ctx context.Context, userID string) ([]models.Material, error) {
	const q = `
		SELECT id, user_id, subject, file_name, content_hash, storage_url, page_count, created_at
		FROM materials
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, c.q(q), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Material
	for rows.Next() {
		var m models.Material
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.Subject, &m.FileName, &m.ContentHash, &m.StorageURL, &m.PageCount, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Study notes

func (c *DatabaseClient) GetStudyNoteByHash(ctx context.Context, contentHash string) (*models.StudyNote, error) {
	return c.getStudyNote(ctx, "content_hash", contentHash)
}

func (c *DatabaseClient) GetStudyNoteByID(ctx context.Context, id string) (*models.StudyNote, error) {
	return c.getStudyNote(ctx, "id", id)
}

func (c *DatabaseClient) getStudyNote(ctx context.Context, column, value string) (*models.StudyNote, error) {
	q := `
		SELECT id, content_hash, content, model_used, prompt_used, created_at
		FROM study_notes WHERE ` + column + ` = $1
	`
	var n models.StudyNote
	err := c.db.QueryRowContext(ctx, c.q(q), value).Scan(
		&n.ID, &n.ContentHash, &n.Content, &n.ModelUsed, &n.PromptUsed, &n.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// InsertStudyNote stores note unless one already exists for its hash. The
// unique constraint on content_hash settles concurrent writers.
func (c *DatabaseClient) InsertStudyNote(ctx context.Context, note *models.StudyNote) (bool, error) {
	if note == nil {
		return false, errors.New("nil study note")
	}
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	note.CreatedAt = timeOrNow(note.CreatedAt)

	const q = `
		INSERT INTO study_notes (id, content_hash, content, model_used, prompt_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (content_hash) DO NOTHING
	`
	res, err := c.db.ExecContext(ctx, c.q(q),
		note.ID, note.ContentHash, note.Content, note.ModelUsed, note.PromptUsed, note.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Flashcards

// InsertFlashcards inserts a batch in a single transaction, keeping order.
func (c *DatabaseClient) InsertFlashcards(ctx context.Context, cards []models.Flashcard) error {
	if len(cards) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO flashcards
			(id, content_hash, material_id, position, front, back, category, difficulty, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	stmt, err := tx.PrepareContext(ctx, c.q(q))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range cards {
		fc := &cards[i]
		if fc.ID == "" {
			fc.ID = uuid.NewString()
		}
		fc.CreatedAt = timeOrNow(fc.CreatedAt)
		if _, err := stmt.ExecContext(ctx,
			fc.ID, fc.ContentHash, nullString(fc.MaterialID), i, fc.Front, fc.Back, fc.Category, fc.Difficulty, fc.CreatedAt,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) GetFlashcardsByHash(ctx context.Context, contentHash string) ([]models.Flashcard, error) {
	const q = `
		SELECT id, content_hash, material_id, front, back, category, difficulty, created_at
		FROM flashcards
		WHERE content_hash = $1
		ORDER BY position ASC
	`
	rows, err := c.db.QueryContext(ctx, c.q(q), contentHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Flashcard
	for rows.Next() {
		var (
			fc         models.Flashcard
			materialID sql.NullString
		)
		if err := rows.Scan(
			&fc.ID, &fc.ContentHash, &materialID, &fc.Front, &fc.Back, &fc.Category, &fc.Difficulty, &fc.CreatedAt,
		); err != nil {
			return nil, err
		}
		fc.MaterialID = materialID.String
		out = append(out, fc)
	}
	return out, rows.Err()
}

// Quizzes

// InsertQuiz stores the quiz unless one already exists for its content hash.
// The bool reports whether this call's row was the one written.
func (c *DatabaseClient) InsertQuiz(ctx context.Context, quiz *models.Quiz) (bool, error) {
	if quiz == nil {
		return false, errors.New("nil quiz")
	}
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	quiz.CreatedAt = timeOrNow(quiz.CreatedAt)

	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return false, fmt.Errorf("encode questions: %w", err)
	}

	const q = `
		INSERT INTO quizzes (id, content_hash, subject, title, questions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (content_hash) DO NOTHING
	`
	res, err := c.db.ExecContext(ctx, c.q(q),
		quiz.ID, quiz.ContentHash, quiz.Subject, quiz.Title, string(questions), quiz.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *DatabaseClient) GetQuizByHash(ctx context.Context, contentHash string) (*models.Quiz, error) {
	const q = `
		SELECT id, content_hash, subject, title, questions, created_at
		FROM quizzes WHERE content_hash = $1
	`
	var (
		quiz      models.Quiz
		questions string
	)
	err := c.db.QueryRowContext(ctx, c.q(q), contentHash).Scan(
		&quiz.ID, &quiz.ContentHash, &quiz.Subject, &quiz.Title, &questions, &quiz.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(questions), &quiz.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return &quiz, nil
}

// Q&A sessions

func (c *DatabaseClient) InsertQASession(ctx context.Context, s *models.QASession) error {
	if s == nil {
		return errors.New("nil qa session")
	}
	if (s.StudyNoteID == "") == (s.MaterialID == "") {
		return errors.New("qa session must reference exactly one of study note or material")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = timeOrNow(s.CreatedAt)

	const q = `
		INSERT INTO qa_sessions (id, user_id, question, answer, study_note_id, material_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := c.db.ExecContext(ctx, c.q(q),
		s.ID, s.UserID, s.Question, s.Answer, nullString(s.StudyNoteID), nullString(s.MaterialID), s.CreatedAt)
	return err
}

// ListQASessions returns the sessions linked to a study note or, when
// studyNoteID is empty, to a material. Oldest first.
func (c *DatabaseClient) ListQASessions(ctx context.Context, studyNoteID, materialID string) ([]models.QASession, error) {
	column, value := "study_note_id", studyNoteID
	if studyNoteID == "" {
		column, value = "material_id", materialID
	}
	if value == "" {
		return nil, errors.New("study note id or material id required")
	}

	q := `
		SELECT id, user_id, question, answer, study_note_id, material_id, created_at
		FROM qa_sessions
		WHERE ` + column + ` = $1
		ORDER BY created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, c.q(q), value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.QASession
	for rows.Next() {
		var (
			s             models.QASession
			noteID, matID sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.Question, &s.Answer, &noteID, &matID, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.StudyNoteID, s.MaterialID = noteID.String, matID.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteQASession removes a session owned by userID. A session that exists
// under another user is reported as not found.
func (c *DatabaseClient) DeleteQASession(ctx context.Context, userID, id string) error {
	const q = `DELETE FROM qa_sessions WHERE id = $1 AND user_id = $2`
	res, err := c.db.ExecContext(ctx, c.q(q), id, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("qa session %s: %w", id, core.ErrNotFound)
	}
	return nil
}
