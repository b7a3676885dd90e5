package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/infra/postgres"
	infraredis "live-quiz-service/internal/infra/redis"
	"live-quiz-service/internal/logging"
	transport "live-quiz-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPort       = "8080"
	defaultQuizTTL    = 10 * time.Minute
	defaultSessionTTL = 2 * time.Hour
	shutdownTimeout   = 5 * time.Second
)

func newStartCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), flags)
		},
	}
}

func runServer(ctx context.Context, flags *rootFlags) error {
	cfg, err := config.LoadOrDefault(flags.configPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg); err != nil {
			return err
		}
	}

	port := flags.port
	if port == "" {
		port = cfg.Server.Port
	}
	if port == "" {
		port = defaultPort
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
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, continuing with local fallbacks")
		}
	}

	loader, closeLoader, err := buildLoader(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLoader()

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, defaultQuizTTL)
	sessionTTL := config.TTLDuration(cfg.Session.MaxAge, config.TTLDuration(cfg.Redis.TTL, defaultSessionTTL))

	var quizRepo app.QuizRepository
	var store app.SessionRepository
	var redisStore *infraredis.SessionStore
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
		redisStore = infraredis.NewSessionStore(redisClient, sessionTTL)
		store = redisStore
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		store = memory.NewSessionStore()
	}

	registry := app.NewRegistry(store, quizRepo, app.Options{
		TickInterval: config.TTLDuration(cfg.Session.TickInterval, app.DefaultTickInterval),
	})
	router := transport.NewRouter(registry, transport.NewWSHandler(registry), cfg.Server.PublicURL)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if redisStore != nil {
		g.Go(func() error { return redisStore.KeepAlive(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildLoader picks the quiz library source: Postgres, then a YAML file, then
// the built-in sample.
func buildLoader(ctx context.Context, cfg config.Config) (memory.QuizLoader, func(), error) {
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("quiz library backed by postgres")
		return postgres.NewQuizLoader(pool), pool.Close, nil
	}
	if cfg.Quiz.Library != "" {
		loader, err := memory.LoadLibraryFile(cfg.Quiz.Library)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("file", cfg.Quiz.Library).Msg("quiz library loaded from file")
		return loader, func() {}, nil
	}
	return memory.NewStaticQuizLoader(sampleQuizzes()), func() {}, nil
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"sample": {
			ID:    "sample",
			Title: "Warm-up",
			Questions: []domain.Question{
				{
					ID:           "q1",
					Text:         "What is 2 + 2?",
					Choices:      []string{"3", "4", "5", "22"},
					CorrectIndex: 1,
					TimerSec:     20,
				},
				{
					ID:           "q2",
					Text:         "Which planet is closest to the sun?",
					Choices:      []string{"Venus", "Earth", "Mercury", "Mars"},
					CorrectIndex: 2,
					TimerSec:     15,
				},
			},
		},
	}
}
