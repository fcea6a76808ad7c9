package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quiz-learning-service/internal/app"
	"quiz-learning-service/internal/config"
	"quiz-learning-service/internal/domain"
	"quiz-learning-service/internal/generator"
	"quiz-learning-service/internal/infra/memory"
	"quiz-learning-service/internal/infra/postgres"
	redisinfra "quiz-learning-service/internal/infra/redis"
	"quiz-learning-service/internal/metrics"
)

// quizStore is what both quiz repositories need from the durable layer.
type quizStore interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// runtime bundles the service with the resources it holds open.
type runtime struct {
	service  *app.QuizService
	registry *prometheus.Registry
	closers  []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// buildRuntime picks storage from the config: Postgres when a URL is set,
// Redis for caching and session markers when an address is set, memory otherwise.
func buildRuntime(ctx context.Context, cfg config.Config, log zerolog.Logger) (*runtime, error) {
	rt := &runtime{registry: prometheus.NewRegistry()}
	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var store quizStore = memory.NewQuizStoreMap(nil)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.closers = append(rt.closers, pool.Close)
		store = postgres.NewQuizStore(pool)
		log.Info().Msg("quizzes persisted in postgres")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			rt.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis cache enabled")
	}

	settings := app.SessionSettings{
		Budget:       cfg.TimeBudgetSeconds(),
		TickInterval: config.TTLDuration(cfg.Quiz.TickInterval, time.Second),
		Retention:    config.TTLDuration(cfg.Quiz.Retention, app.DefaultRetention),
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizzes app.QuizRepository
	var sessions app.SessionRepository
	if redisClient != nil {
		// Markers must outlive a full attempt plus its retention.
		markerTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		if lifetime := time.Duration(settings.Budget)*time.Second + settings.Retention; markerTTL < lifetime {
			markerTTL = lifetime
		}
		quizzes = redisinfra.NewQuizRepository(redisClient, store, quizTTL)
		sessions = redisinfra.NewSessionStore(redisClient, markerTTL)
	} else {
		quizzes = memory.NewQuizRepository(store, quizTTL)
		sessions = memory.NewSessionStore()
	}

	gen := generator.NewMock(generator.Config{
		APIKey:        cfg.Generation.APIKey,
		TopicDelay:    config.TTLDuration(cfg.Generation.TopicDelay, 2*time.Second),
		DocumentDelay: config.TTLDuration(cfg.Generation.DocumentDelay, 2500*time.Millisecond),
		Seed:          cfg.Generation.Seed,
	})
	if cfg.Generation.APIKey == "" {
		log.Warn().Msg("GENERATOR_API_KEY is not set; quiz generation will be refused")
	}

	rt.service = app.NewQuizService(sessions, quizzes, gen,
		app.WithLogger(log),
		app.WithMetrics(metrics.New(rt.registry)),
		app.WithTopics(generator.NewSuggester(cfg.Generation.Topics)),
		app.WithSessionSettings(settings),
	)
	return rt, nil
}
