package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/markdave123-py/StudyCoach/internal/core/llm"
)

type Config struct {
	DatabaseDriver string
	DatabaseURL    string
	SslCertPath    string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	S3Endpoint   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	LLMProvider  string
	AIAPIKey     string
	GeminiAPIKey string
	LLMBaseURL   string
	GenModel     string
	LLMTimeout   time.Duration
	AppURL       string

	MaxInputTokens      int
	MaxOutputTokens     int
	NotesMaxTokens      int
	FlashcardsMaxTokens int
	QuizMaxTokens       int
	QAMaxTokens         int
	InputCostPer1M      float64
	OutputCostPer1M     float64

	ChunkSize   int
	NoteWorkers int

	JWTSecret      string
	AllowedOrigins []string
	Port           string
	RequestTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() (*Config, error) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the environment without validating it, for tools that only
// need a subset of the settings.
func Load() *Config {
	_ = godotenv.Load()

	maxInput := getEnvInt("MAX_INPUT_TOKENS", llm.DefaultMaxInputTokens)
	budget := llm.DefaultBudget()
	budget.MaxInputTokens = maxInput

	return &Config{
		DatabaseDriver: getEnv("DB_DRIVER", "postgres"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SslCertPath:    getEnv("SSL_CERT_PATH", ""),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "studycoach-materials"),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 24*time.Hour),

		LLMProvider:  getEnv("LLM_PROVIDER", "openrouter"),
		AIAPIKey:     getEnv("OPENROUTER_API_KEY", ""),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		LLMBaseURL:   getEnv("LLM_BASE_URL", llm.DefaultBaseURL),
		GenModel:     getEnv("GEN_MODEL", llm.DefaultModel),
		LLMTimeout:   getEnvDuration("LLM_TIMEOUT", llm.DefaultTimeout),
		AppURL:       getEnv("APP_URL", "http://localhost:8080"),

		MaxInputTokens:      maxInput,
		MaxOutputTokens:     getEnvInt("MAX_OUTPUT_TOKENS", llm.DefaultMaxOutputTokens),
		NotesMaxTokens:      getEnvInt("NOTES_MAX_TOKENS", 8000),
		FlashcardsMaxTokens: getEnvInt("FLASHCARDS_MAX_TOKENS", 3000),
		QuizMaxTokens:       getEnvInt("QUIZ_MAX_TOKENS", 4000),
		QAMaxTokens:         getEnvInt("QA_MAX_TOKENS", 2000),
		InputCostPer1M:      getEnvFloat("INPUT_COST_PER_1M", llm.DefaultInputCostPer1M),
		OutputCostPer1M:     getEnvFloat("OUTPUT_COST_PER_1M", llm.DefaultOutputCostPer1M),

		ChunkSize:   getEnvInt("CHUNK_SIZE", budget.MaxChunkChars()),
		NoteWorkers: getEnvInt("NOTE_WORKERS", 1),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		Port:           getEnv("PORT", "8080"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 10*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL not set"))
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}
	if limit := c.LLMConfig().Budget.MaxChunkChars(); c.ChunkSize > limit {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE %d exceeds the %d characters one notes request can hold", c.ChunkSize, limit))
	}
	return errors.Join(errs...)
}

// LLMConfig derives the orchestrator configuration. The API key is picked
// for the selected provider; a missing key is reported when the backend is
// constructed.
func (c *Config) LLMConfig() llm.Config {
	cfg := llm.DefaultConfig()
	cfg.Provider = c.LLMProvider
	cfg.APIKey = c.AIAPIKey
	if strings.EqualFold(c.LLMProvider, "gemini") {
		cfg.APIKey = c.GeminiAPIKey
	}
	cfg.BaseURL = c.LLMBaseURL
	cfg.Model = c.GenModel
	cfg.Timeout = c.LLMTimeout
	cfg.Referer = c.AppURL

	cfg.Budget.MaxInputTokens = c.MaxInputTokens
	cfg.Budget.MaxOutputTokens = c.MaxOutputTokens
	cfg.Budget.InputCostPer1M = c.InputCostPer1M
	cfg.Budget.OutputCostPer1M = c.OutputCostPer1M

	cfg.Notes.MaxTokens = c.NotesMaxTokens
	cfg.Flashcards.MaxTokens = c.FlashcardsMaxTokens
	cfg.Quiz.MaxTokens = c.QuizMaxTokens
	cfg.QA.MaxTokens = c.QAMaxTokens
	return cfg
}

// ObjectStorageEnabled reports whether uploads should be archived to S3.
func (c *Config) ObjectStorageEnabled() bool {
	return c.AwsAccessKey != "" && c.AwsSecretKey != ""
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARN: %s=%q not an int, using default %d\n", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARN: %s=%q not a number, using default %g\n", key, v, def)
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARN: %s=%q not a duration, using default %s\n", key, v, def)
		return def
	}
	return d
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
