package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/StudyCoach/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/StudyCoach/internal/api/middlewares"
	"github.com/markdave123-py/StudyCoach/internal/observability"
)

// RouterDeps is everything the HTTP routes are built from.
type RouterDeps struct {
	Study          handlers.StudyAPI
	LLM            handlers.ConnectionTester
	JWTSecret      string
	AllowedOrigins []string
	RequestTimeout time.Duration
	Log            zerolog.Logger
}

// NewRouter wires middleware and all /api routes.
func NewRouter(d RouterDeps) http.Handler {
	docHandler := handlers.NewDocumentHandler(d.Study, d.Log)
	practiceHandler := handlers.NewPracticeHandler(d.Study, d.Log)
	chatHandler := handlers.NewChatHandler(d.Study, d.Log)
	healthHandler := handlers.NewHealthHandler(d.LLM)

	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(observability.RequestLogger(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Get("/health", healthHandler.Health)
		api.Get("/llm/status", healthHandler.LLMStatus)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.Authenticate(d.JWTSecret))

			protected.Post("/generate-hash", docHandler.GenerateHash)
			protected.Post("/process-pdf", docHandler.ProcessPDF)
			protected.Get("/notes/{content_hash}", docHandler.GetNotes)
			protected.Get("/materials", docHandler.ListMaterials)
			protected.Get("/materials/{id}/file", docHandler.MaterialFile)

			protected.Post("/flashcards", practiceHandler.CreateFlashcards)
			protected.Get("/flashcards/{content_hash}", practiceHandler.GetFlashcards)
			protected.Post("/quizzes", practiceHandler.CreateQuiz)
			protected.Get("/quizzes/{content_hash}", practiceHandler.GetQuiz)

			protected.Post("/qa", chatHandler.Ask)
			protected.Get("/qa", chatHandler.List)
			protected.Delete("/qa/{id}", chatHandler.Delete)
		})
	})

	return r
}

// Server wraps the HTTP server instance.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

func NewServer(port string, handler http.Handler, log zerolog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
