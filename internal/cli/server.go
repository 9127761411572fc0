package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/infra/memory"
	"quiz-session-service/internal/infra/postgres"
	redisinfra "quiz-session-service/internal/infra/redis"
	"quiz-session-service/internal/telemetry"
	transport "quiz-session-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stdout, cfg)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var loader memory.QuizLoader
	var results app.ResultStore
	if cfg.Postgres.URL != "" {
		db := postgres.OpenDB(cfg.Postgres.URL)
		defer db.Close()
		if err := postgres.Migrate(ctx, db, logger); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		results = postgres.NewResultStore(db)

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()
		loader = postgres.NewQuizLoader(pool)
		logger.Info("connected to postgres")
	} else {
		static, err := staticLoader(cfg, logger)
		if err != nil {
			return err
		}
		loader = static
		results = memory.NewResultStore()
		logger.Warn("postgres not configured, reports are kept in memory")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("pinging redis: %w", err)
		}
		logger.Info("connected to redis", "addr", cfg.Redis.Addr)
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var catalog app.QuizCatalog
	var roster app.Roster
	if redisClient != nil {
		catalog = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
		roster = redisinfra.NewRoster(redisClient, redisTTL)
	} else {
		catalog = memory.NewQuizRepository(loader, quizTTL)
		roster = memory.NewRoster()
	}

	recorder := telemetry.NewRecorder(logger)
	service := app.NewQuizService(catalog, results,
		app.WithRoster(roster),
		app.WithObserver(recorder),
		app.WithLogger(logger),
		app.WithGraceDelay(config.TTLDuration(cfg.Session.GraceDelay, app.DefaultGraceDelay)),
	)
	wsHandler := transport.NewWSHandler(service, logger, cfg.Session.SendBuffer)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, wsHandler, recorder, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting quiz service", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func staticLoader(cfg config.Config, logger *slog.Logger) (*memory.StaticQuizLoader, error) {
	if cfg.Quiz.CatalogFile == "" {
		logger.Warn("no quiz catalog configured, every join will be rejected")
		return memory.NewStaticQuizLoader(nil), nil
	}
	quizzes, err := memory.LoadQuizFile(cfg.Quiz.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("loading quiz catalog: %w", err)
	}
	logger.Info("loaded quiz catalog", "file", cfg.Quiz.CatalogFile, "quizzes", len(quizzes))
	return memory.NewStaticQuizLoader(quizzes), nil
}
