package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/auth"
	"quiz-competition-service/internal/config"
	"quiz-competition-service/internal/infra/memory"
	"quiz-competition-service/internal/infra/postgres"
	rediscache "quiz-competition-service/internal/infra/redis"
	"quiz-competition-service/internal/logging"
	"quiz-competition-service/internal/metrics"
	transport "quiz-competition-service/internal/transport/http"
)

const defaultTokenTTL = 8 * 24 * time.Hour

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func loadConfig(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}

// stores are the backing repositories selected by configuration.
type stores struct {
	content  app.ContentRepository
	attempts app.AttemptRepository
	users    app.UserRepository
	loader   memory.QuizLoader
	close    func()
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (stores, error) {
	if cfg.Postgres.URL == "" {
		logger.Warn("postgres url not configured; using in-memory stores")
		content := memory.NewContentStore()
		return stores{
			content:  content,
			attempts: memory.NewAttemptStore(),
			users:    memory.NewUserStore(),
			loader:   content,
			close:    func() {},
		}, nil
	}

	if err := runMigrations(ctx, cfg, logger); err != nil {
		return stores{}, err
	}
	db := postgres.Open(cfg.Postgres.URL)
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		db.Close()
		return stores{}, fmt.Errorf("connect postgres: %w", err)
	}
	return stores{
		content:  postgres.NewContentStore(db),
		attempts: postgres.NewAttemptStore(db),
		users:    postgres.NewUserStore(db),
		loader:   postgres.NewQuizLoader(pool),
		close: func() {
			pool.Close()
			_ = db.Close()
		},
	}, nil
}

func newQuizCache(cfg config.Config, loader memory.QuizLoader, logger *zap.Logger) (app.QuizCache, func()) {
	ttl := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr == "" {
		return memory.NewQuizRepository(loader, ttl), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return rediscache.NewQuizRepository(client, loader, ttl, logger), func() { _ = client.Close() }
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (or JWT_SECRET) must be set")
	}
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()
	quizzes, closeCache := newQuizCache(cfg, st.loader, logger)
	defer closeCache()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, defaultTokenTTL))
	content := app.NewContentService(st.content, st.attempts, quizzes, logger)
	if cfg.SeedSampleData && cfg.Postgres.URL == "" {
		if err := seedSampleQuiz(ctx, content); err != nil {
			return fmt.Errorf("seed sample data: %w", err)
		}
	}

	router := transport.NewRouter(transport.Deps{
		Users:     app.NewUserService(st.users, tokens, logger),
		Content:   content,
		Attempts:  app.NewAttemptService(st.attempts, quizzes, logger).ObserveWith(m),
		Analytics: app.NewAnalyticsService(st.attempts, quizzes, st.users, cfg.Leaderboard.DefaultLimit),
		Tokens:    tokens,
		Metrics:   m,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedSampleQuiz provides a minimal quiz for the in-memory stores.
func seedSampleQuiz(ctx context.Context, content *app.ContentService) error {
	category, err := content.CreateCategory(ctx, "Arithmetic", "Warm-up questions")
	if err != nil {
		return err
	}
	inputs := []app.QuestionInput{
		{
			Text:       "What is 2 + 2?",
			CategoryID: category.ID,
			Options:    []app.OptionInput{{Text: "3"}, {Text: "4", Correct: true}, {Text: "5"}},
		},
		{
			Text:        "What is 3 x 3?",
			CategoryID:  category.ID,
			Explanation: "Three groups of three.",
			Options:     []app.OptionInput{{Text: "6"}, {Text: "9", Correct: true}},
		},
	}
	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		q, err := content.CreateQuestion(ctx, "system", in)
		if err != nil {
			return err
		}
		ids = append(ids, q.ID)
	}
	_, err = content.CreateQuiz(ctx, "system", app.QuizInput{
		Title:          "Warm-up",
		Description:    "Two quick questions",
		PassPercentage: 50,
		IsActive:       true,
		QuestionIDs:    ids,
	})
	return err
}
