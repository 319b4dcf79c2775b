package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/StudyCoach/internal/config"
	"github.com/markdave123-py/StudyCoach/internal/core"
	"github.com/markdave123-py/StudyCoach/internal/core/cache"
	db "github.com/markdave123-py/StudyCoach/internal/core/database"
	"github.com/markdave123-py/StudyCoach/internal/core/ingestion_engine"
	"github.com/markdave123-py/StudyCoach/internal/core/llm"
	objectclient "github.com/markdave123-py/StudyCoach/internal/core/object-client"
	"github.com/markdave123-py/StudyCoach/internal/services"
)

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Cache        core.NoteCache
	LLM          *llm.Orchestrator
	Study        *services.StudyService
	Server       *Server

	closers []func() error
}

func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{}

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBClient = dbClient
	a.closers = append(a.closers, dbClient.Close)
	log.Info().Str("driver", cfg.DatabaseDriver).Msg("database initialized and ready")

	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisNoteCache(appCtx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Cache = rc
		a.closers = append(a.closers, rc.Close)
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis note cache ready")
	} else {
		a.Cache = cache.NewMemoryNoteCache(cfg.CacheTTL)
	}

	if cfg.ObjectStorageEnabled() {
		objClient, err := objectclient.NewS3Client(appCtx, cfg, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.ObjectClient = objClient
	} else {
		log.Warn().Msg("AWS credentials not set, uploads will not be archived")
	}

	orchestrator, err := llm.New(appCtx, cfg.LLMConfig(), log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("couldn't initialize the llm orchestrator: %w", err)
	}
	a.LLM = orchestrator

	useReadability := false
	extractor := ingestion_engine.NewDocconvExtractor(useReadability, log)
	ingestor := ingestion_engine.NewDocumentIngestor(extractor, &ingestion_engine.IngestConfig{
		ChunkSize:      cfg.ChunkSize,
		BoundaryWindow: ingestion_engine.BoundaryWindow,
	})

	a.Study = services.NewStudyService(services.Deps{
		DB:        a.DBClient,
		Cache:     a.Cache,
		Storage:   a.ObjectClient,
		Bucket:    cfg.BucketName,
		Ingestor:  ingestor,
		Generator: orchestrator,
		Estimator: orchestrator.Estimator(),
		Workers:   cfg.NoteWorkers,
		Log:       log,

		GenerationTimeout: cfg.RequestTimeout,
	})

	router := NewRouter(RouterDeps{
		Study:          a.Study,
		LLM:            orchestrator,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Log:            log,
	})
	a.Server = NewServer(cfg.Port, router, log)

	return a, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}
