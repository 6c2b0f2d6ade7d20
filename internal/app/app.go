// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/garyellow/travel-linebot-go/internal/bot"
	"github.com/garyellow/travel-linebot-go/internal/buildinfo"
	"github.com/garyellow/travel-linebot-go/internal/config"
	"github.com/garyellow/travel-linebot-go/internal/genai"
	"github.com/garyellow/travel-linebot-go/internal/logger"
	"github.com/garyellow/travel-linebot-go/internal/metrics"
	"github.com/garyellow/travel-linebot-go/internal/places"
	"github.com/garyellow/travel-linebot-go/internal/r2client"
	"github.com/garyellow/travel-linebot-go/internal/sentry"
	"github.com/garyellow/travel-linebot-go/internal/snapshot"
	"github.com/garyellow/travel-linebot-go/internal/storage"
	"github.com/garyellow/travel-linebot-go/internal/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// pinger is a dependency checked by /readyz.
type pinger interface {
	Ping(ctx context.Context) error
}

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	db             *storage.DB
	redis          *storage.RedisStateStore // nil with the sqlite backend
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	answers        *genai.Gateway
	backups        *snapshot.Manager // nil when R2 is disabled
	webhookHandler *webhook.Handler
	server         *http.Server
	wg             sync.WaitGroup // background jobs
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    betterStackToken(cfg),
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})
	log = log.WithField("service", "travel-linebot-go").WithField("release", buildinfo.Release())
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}
	// Package-level slog calls pick up context values through the default logger.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")

	if cfg.SentryEnabled {
		if err := sentry.Initialize(sentry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			Release:          releaseName(cfg),
			ServerName:       cfg.ServerName,
			SampleRate:       cfg.SentrySampleRate,
			TracesSampleRate: cfg.SentryTracesSampleRate,
		}); err != nil {
			log.WithError(err).Warn("Sentry initialization failed")
		} else {
			log.WithField("environment", cfg.SentryEnvironment).Info("Sentry enabled")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	var backups *snapshot.Manager
	if cfg.R2Enabled {
		var err error
		if backups, err = newBackupManager(ctx, cfg); err != nil {
			return nil, fmt.Errorf("backup: %w", err)
		}
		restoreCtx, cancel := context.WithTimeout(ctx, config.BackupRestore)
		restored, err := backups.Restore(restoreCtx, cfg.SQLitePath())
		cancel()
		if err != nil {
			log.WithError(err).Warn("Backup restore failed, starting with an empty database")
		} else if restored {
			log.WithField("key", backups.LatestKey()).Info("Database restored from R2")
		}
	}

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	db.SetMetrics(m)
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	var (
		states    storage.StateStore = db
		redisStor *storage.RedisStateStore
	)
	if cfg.StateBackend == config.StateBackendRedis {
		client, err := storage.NewRedisClient(cfg.RedisURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		redisStor = storage.NewRedisStateStore(client, cfg.StateTTL)
		states = redisStor
		log.WithField("ttl", cfg.StateTTL).Info("Conversation state stored in Redis")
	}

	answers, err := genai.CreateGateway(ctx, answerConfig(cfg), m)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("answer gateway: %w", err)
	}

	search := places.NewClient(places.Config{
		APIKey:   cfg.PlacesAPIKey,
		BaseURL:  cfg.PlacesBaseURL,
		Language: cfg.PlacesLanguage,
		Timeout:  cfg.PlacesTimeout,
	}, m)

	processor := bot.NewProcessor(bot.ProcessorConfig{
		Users:     db,
		States:    states,
		History:   db,
		Searches:  db,
		Search:    search,
		Answers:   answers,
		Logger:    log,
		Metrics:   m,
		BotConfig: cfg.Bot,
	})

	messenger, err := webhook.NewLineMessenger(cfg.LineChannelToken, cfg.Bot.WebhookTimeout)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("line client: %w", err)
	}
	webhookHandler, err := webhook.NewHandler(webhook.HandlerConfig{
		ChannelSecret: cfg.LineChannelSecret,
		Messenger:     messenger,
		Processor:     processor,
		BotConfig:     cfg.Bot,
		Metrics:       m,
		Logger:        log,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("webhook: %w", err)
	}

	app := &Application{
		cfg:            cfg,
		logger:         log,
		db:             db,
		redis:          redisStor,
		metrics:        m,
		registry:       registry,
		answers:        answers,
		backups:        backups,
		webhookHandler: webhookHandler,
	}

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.newRouter(),
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.WithField("answer_providers", len(answers.Providers())).
		WithField("places_enabled", cfg.PlacesAPIKey != "").
		WithField("backup_enabled", backups != nil).
		Info("Initialization complete")
	return app, nil
}

func betterStackToken(cfg *config.Config) string {
	if !cfg.BetterStackEnabled {
		return ""
	}
	return cfg.BetterStackToken
}

func releaseName(cfg *config.Config) string {
	if cfg.SentryRelease != "" {
		return cfg.SentryRelease
	}
	return buildinfo.Release()
}

func newBackupManager(ctx context.Context, cfg *config.Config) (*snapshot.Manager, error) {
	client, err := r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.R2AccountEndpoint(),
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretAccessKey,
		BucketName:  cfg.R2BucketName,
	})
	if err != nil {
		return nil, err
	}
	return snapshot.New(client, snapshot.Config{
		Prefix:  cfg.R2BackupPrefix,
		TempDir: cfg.DataDir,
	}), nil
}

// answerConfig maps the flat environment settings onto the provider chain.
func answerConfig(cfg *config.Config) genai.Config {
	return genai.Config{
		Order:     cfg.AnswerProviders,
		Timeout:   cfg.AnswerTimeout,
		MaxTokens: cfg.AnswerMaxTokens,
		Gemini:    genai.ProviderConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel},
		Groq:      genai.ProviderConfig{APIKey: cfg.GroqAPIKey, Model: cfg.GroqModel},
		Cerebras:  genai.ProviderConfig{APIKey: cfg.CerebrasAPIKey, Model: cfg.CerebrasModel},
		HTTP: genai.ProviderConfig{
			APIKey:   cfg.AnswerHTTPKey,
			Endpoint: cfg.AnswerHTTPURL,
			Auth:     cfg.AnswerHTTPAuth,
		},
	}
}

// Run starts the HTTP server and background jobs, then blocks until
// SIGINT or SIGTERM.
//
// Shutdown order: cancel jobs and wait for them, stop the HTTP server, drain
// webhook events, take a final backup, then close stores and the logger.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	serverErr := a.startHTTPServer()

	select {
	case sig := <-a.waitForShutdownSignal():
		a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErr:
		a.logger.WithError(err).Error("HTTP server stopped unexpectedly")
	}

	cancel()
	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("All background jobs completed")

	return a.shutdown()
}

func (a *Application) startHTTPServer() <-chan error {
	errc := make(chan error, 1)
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	return errc
}

func (a *Application) waitForShutdownSignal() <-chan os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return quit
}

func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Waiting for webhook events to complete...")
	if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
	}

	if a.backups != nil {
		a.runBackup(shutdownCtx)
	}

	a.logger.Info("Closing resources...")
	if err := a.answers.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "answer_gateway").Error("Component close error")
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "redis").Error("Component close error")
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}

	sentry.Flush(2 * time.Second)
	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Logger shutdown timed out", "error", err)
	}
	return nil
}
