package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"bible-quiz-service/internal/ai"
	"bible-quiz-service/internal/app"
	"bible-quiz-service/internal/config"
	"bible-quiz-service/internal/deck"
	"bible-quiz-service/internal/domain"
	"bible-quiz-service/internal/event"
	"bible-quiz-service/internal/infra/memory"
	"bible-quiz-service/internal/infra/postgres"
	redisinfra "bible-quiz-service/internal/infra/redis"
	"bible-quiz-service/internal/infra/sqlite"
	"bible-quiz-service/internal/metrics"
	"bible-quiz-service/internal/preferences"
	"bible-quiz-service/internal/speech"
	"bible-quiz-service/internal/telemetry"
	transport "bible-quiz-service/internal/transport/http"
)

const (
	memoryArchiveLimit = 200
	janitorInterval    = time.Minute
	shutdownTimeout    = 10 * time.Second
)

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

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	bus := event.NewBus(event.WithTimeout(cfg.Gemini.Timeout))
	defer bus.Stop()
	m.CountEvents(bus,
		domain.EventQuestionStarted,
		domain.EventAnswerRecorded,
		domain.EventCooldownStarted,
		domain.EventNarrationReady,
	)

	gemini := geminiClient(cfg)
	source, err := questionSource(cfg, gemini, m)
	if err != nil {
		return err
	}

	speech.NewNarrator(memory.NewAudioCache(gemini, cfg.Speech.CacheTTL), bus).Register(bus)
	hub := transport.NewHub()
	hub.Register(bus)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := telemetry.MonitorRedis(redisClient); err != nil {
			return err
		}
	}

	var archive app.QuizArchive = memory.NewArchive(memoryArchiveLimit)
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg.Postgres.URL); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		archive = postgres.NewQuizArchive(pool)
	}
	if redisClient != nil {
		archive = redisinfra.NewRecentQuestionCache(redisClient, archive, cfg.Redis.RecentSize, cfg.Redis.TTL)
	}

	prefStore, closePrefs, err := preferenceStore(cfg, redisClient)
	if err != nil {
		return err
	}
	defer closePrefs()

	var sessions expiringSessions = memory.NewSessionStore(cfg.Game.SessionTTL)
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, cfg.Game.SessionTTL)
	}

	service := app.NewQuizService(sessions, archive, preferences.NewManager(prefStore), app.Dependencies{
		Source:           source,
		Events:           bus,
		CooldownSeconds:  cfg.Game.CooldownSeconds,
		CountdownSeconds: cfg.Game.CountdownSeconds,
	})

	if !strings.EqualFold(cfg.Log.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transport.NewHandler(service, hub).Router(transport.RouterOptions{Gatherer: reg, Pprof: true})

	// No write timeout: generation can take as long as the Gemini timeout and
	// websockets stay open.
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		reapExpired(gctx, sessions, service)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// questionSource picks the deck when one is configured and Gemini otherwise,
// instrumented either way.
func questionSource(cfg config.Config, gemini *ai.Client, m *metrics.Metrics) (app.QuestionSource, error) {
	if cfg.Game.DeckPath != "" {
		d, err := deck.Load(cfg.Game.DeckPath)
		if err != nil {
			return nil, err
		}
		log.Printf("serving questions from deck %s", cfg.Game.DeckPath)
		return m.Instrument(d), nil
	}
	if !gemini.IsAvailable() {
		slog.Warn("cli: gemini api key not configured; generation will fail until GEMINI_API_KEY is set")
	}
	return m.Instrument(gemini), nil
}

func preferenceStore(cfg config.Config, client *redis.Client) (preferences.Store, func(), error) {
	switch {
	case cfg.SQLite.Path != "":
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case client != nil:
		return redisinfra.NewPreferenceStore(client), func() {}, nil
	}
	return memory.NewPreferenceStore(), func() {}, nil
}

// expiringSessions is a session repository that can tell which sessions
// outlived their TTL.
type expiringSessions interface {
	app.SessionRepository
	Expired(ctx context.Context) ([]string, error)
}

// reapExpired removes sessions that went untouched for the session TTL.
func reapExpired(ctx context.Context, store expiringSessions, service *app.QuizService) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		ids, err := store.Expired(ctx)
		if err != nil {
			slog.WarnContext(ctx, "cli: list expired sessions failed", "error", err)
			continue
		}
		for _, id := range ids {
			service.Remove(ctx, id)
			slog.InfoContext(ctx, "cli: expired session removed", "session", id)
		}
	}
}

func setupLogger(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
