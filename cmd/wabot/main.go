package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/wabot/internal/agent"
	v1 "github.com/gosuda/wabot/internal/api/v1"
	"github.com/gosuda/wabot/internal/api/ws"
	"github.com/gosuda/wabot/internal/automation"
	"github.com/gosuda/wabot/internal/browser"
	"github.com/gosuda/wabot/internal/config"
	"github.com/gosuda/wabot/internal/events"
	"github.com/gosuda/wabot/internal/llm"
	"github.com/gosuda/wabot/internal/messenger/slack"
	"github.com/gosuda/wabot/internal/notify"
	"github.com/gosuda/wabot/internal/profile"
	"github.com/gosuda/wabot/internal/server"
	"github.com/gosuda/wabot/internal/session"
	"github.com/gosuda/wabot/internal/store/postgres"
	redisstore "github.com/gosuda/wabot/internal/store/redis"
)

const sinkBuffer = 256

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	setupLogging(os.Getenv("WA_LOG_LEVEL"), os.Getenv("WA_LOG_FORMAT"))

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level, cfg.Log.Format)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	broker := events.NewBroker()
	sinks := events.MultiSink{broker}
	var closers []*events.Async
	var history session.History
	checks := make(map[string]server.HealthCheck)
	var source ws.Source = ws.NewBrokerSource(broker)

	if cfg.Redis.Addr != "" {
		pubsub, redisErr := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if redisErr != nil {
			return redisErr
		}
		defer pubsub.Close()

		sink := redisstore.NewSink(pubsub, sinkBuffer)
		closers = append(closers, sink)
		sinks = append(sinks, sink)
		source = ws.NewRedisSource(pubsub)
		checks["redis"] = pubsub.Ping
	}

	if cfg.Database.URL != "" {
		if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
			return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
		}
		store, pgErr := postgres.New(ctx, cfg.Database.URL, int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
		if pgErr != nil {
			return pgErr
		}
		defer store.Close()

		if pgErr = store.Migrate(ctx); pgErr != nil {
			return pgErr
		}

		archive := postgres.NewArchive(store.Events(), sinkBuffer)
		closers = append(closers, archive)
		sinks = append(sinks, archive)
		history = store.Events()
		checks["postgres"] = store.Ping
	}

	if cfg.Slack.BotToken != "" && cfg.Slack.Channel != "" {
		messengers := notify.NewRegistry()
		messengers.Register("slack", slack.NewFromToken(cfg.Slack.BotToken))
		notifier := notify.New(messengers, notify.Route{Platform: "slack", Channel: cfg.Slack.Channel})

		sink := notifier.Sink(sinkBuffer)
		closers = append(closers, sink)
		sinks = append(sinks, sink)
	}

	autoCfg := automation.DefaultConfig()
	autoCfg.WhatsAppURL = cfg.Browser.WhatsAppURL
	autoCfg.ActionTimeout = cfg.Browser.ActionTimeout
	autoCfg.NavigateTimeout = cfg.Browser.PageLoadTimeout

	opts := session.Options{
		EventLogCap:       cfg.Session.EventLogCap,
		LoginWatchTimeout: cfg.Session.LoginWatchTimeout,
		AgentStopTimeout:  cfg.Session.AgentStopTimeout,
		Headless:          cfg.Browser.Headless,
		Automation:        autoCfg,
		Registry:          agent.DefaultRegistry(),
		Sink:              sinks,
		History:           history,
	}

	generator := llm.New(llm.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
	})
	if generator.Configured() {
		opts.Generator = generator
	}

	mgr := session.NewManager(
		profile.NewStore(cfg.Browser.ProfileDir),
		browser.NewLauncher(cfg.Browser.Bin, cfg.Browser.PageLoadTimeout),
		opts,
	)

	hub := ws.NewHub(func(ctx context.Context, sessionID string, since time.Time) ([]events.Event, bool) {
		s, ok := mgr.Get(sessionID)
		if !ok {
			return nil, false
		}
		return s.History(ctx, since, 0), true
	}, source)

	srv := server.New(ctx, cfg, v1.NewSessionService(mgr), hub, checks)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	srvErr := srv.Shutdown(shutdownCtx)
	mgrErr := mgr.Shutdown(shutdownCtx)

	// Sessions emit their final events during teardown; flush after.
	for _, c := range closers {
		c.Close()
	}

	return errors.Join(srvErr, mgrErr)
}

func setupLogging(level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
