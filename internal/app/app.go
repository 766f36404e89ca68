package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gokatarajesh/quiz-practice/internal/auth"
	"github.com/gokatarajesh/quiz-practice/internal/auth/jwt"
	"github.com/gokatarajesh/quiz-practice/internal/config"
	"github.com/gokatarajesh/quiz-practice/internal/history"
	"github.com/gokatarajesh/quiz-practice/internal/logging"
	"github.com/gokatarajesh/quiz-practice/internal/metrics"
	"github.com/gokatarajesh/quiz-practice/internal/question"
	"github.com/gokatarajesh/quiz-practice/internal/question/ai"
	"github.com/gokatarajesh/quiz-practice/internal/server"
	"github.com/gokatarajesh/quiz-practice/internal/session"
	ws "github.com/gokatarajesh/quiz-practice/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool     *pgxpool.Pool
	redis    *redis.Client
	gemini   *ai.GeminiClient
	sessions *session.Manager
	http     *http.Server
}

// New bootstraps logger, metrics, Postgres, Redis, the quiz generator and the
// HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(registry)

	pool, err := pgxpool.New(ctx, cfg.Postgres.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	catalog, err := question.LoadBundledCatalog()
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	quizCache := question.NewCache(redisClient, cfg.Redis.GeneratedQuizTTL)
	questionSvc := question.NewService(catalog, quizCache)

	var tokens auth.TokenValidator
	if cfg.Security.JWTSecret != "" {
		tokens = jwt.NewManager(jwt.TokenConfig{
			Secret: []byte(cfg.Security.JWTSecret),
			Issuer: cfg.Name,
		})
	} else {
		logger.Warn().Msg("JWT secret not configured; bearer tokens are not verified")
	}

	var (
		backend ai.TextGenerator
		gemini  *ai.GeminiClient
	)
	if cfg.AI.GeminiAPIKey != "" {
		gemini, err = ai.NewGeminiClient(ctx, cfg.AI.GeminiAPIKey, cfg.AI.Model, cfg.AI.HTTPTimeout)
		if err != nil {
			pool.Close()
			_ = redisClient.Close()
			return nil, err
		}
		backend = gemini
		logger.Info().Str("model", cfg.AI.Model).Msg("gemini generator initialized")
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not configured; quiz generation disabled")
	}
	generator := ai.NewGenerator(backend, ai.Config{
		MinQuestions: cfg.AI.MinQuestions,
		MaxQuestions: cfg.AI.MaxQuestions,
		ExamName:     cfg.AI.ExamName,
	}, collector, logger)
	generateHandler := ai.NewHandler(generator, questionSvc, logger)

	historyRepo := history.NewRepository(history.NewPostgresStore(pool))
	recorder := history.NewRecorder(historyRepo, collector, logger)
	var historyOpts []history.Option
	if tokens != nil {
		historyOpts = append(historyOpts, history.WithRequiredAuth())
	}
	historyHandlers := history.NewHTTPHandlers(historyRepo, collector, logger, historyOpts...)

	sessions := session.NewManager(session.ManagerOptions{
		PerQuestionSeconds: cfg.Session.PerQuestionSeconds,
		TickInterval:       cfg.Session.TickInterval,
		Retention:          cfg.Session.Retention,
		RecordTimeout:      cfg.Session.HistoryWriteTimeout,
	}, recorder, collector, logger)
	sessionHandlers := session.NewHTTPHandlers(sessions, questionSvc, logger)
	wsHandler := session.NewWSHandler(sessions, ws.NewHub(logger), logger)
	subjects := question.NewHTTPHandler(catalog)

	apiServer := server.NewHTTPServer(cfg, logger, server.Dependencies{
		Postgres: pool,
		Redis:    redisClient,
		Tokens:   tokens,
		Metrics:  collector,
		Gatherer: registry,
	},
		sessionHandlers,
		historyHandlers,
		server.RouterFunc(func(mux *http.ServeMux) {
			mux.Handle("POST /api/quiz/generate", generateHandler)
			mux.HandleFunc("GET /v1/subjects", subjects.ListSubjects)
			mux.Handle("GET /ws/sessions/{id}", wsHandler)
		}),
	)

	return &Application{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		redis:    redisClient,
		gemini:   gemini,
		sessions: sessions,
		http:     apiServer,
	}, nil
}

// Run serves HTTP until ctx is cancelled or a termination signal arrives,
// then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
		defer cancel()
		if err := a.http.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("http shutdown error")
		}
		return nil
	})

	err := g.Wait()
	a.close()
	return err
}

func (a *Application) close() {
	// Waits for in-flight history writes, so it must run before the pool closes.
	a.sessions.Close()

	if a.gemini != nil {
		if err := a.gemini.Close(); err != nil {
			a.logger.Error().Err(err).Msg("gemini client close error")
		}
	}
	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}
	a.logger.Info().Msg("shutdown complete")
}
