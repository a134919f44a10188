// Package app assembles the relay from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	gmail "google.golang.org/api/gmail/v1"
	"gorm.io/gorm"

	"rfp-relay-go/internal/ai"
	"rfp-relay-go/internal/ai/gemini"
	"rfp-relay-go/internal/ai/openai"
	"rfp-relay-go/internal/config"
	"rfp-relay-go/internal/db"
	"rfp-relay-go/internal/dedup"
	"rfp-relay-go/internal/gmailapi"
	"rfp-relay-go/internal/handlers"
	"rfp-relay-go/internal/mailbox"
	"rfp-relay-go/internal/mailer"
	"rfp-relay-go/internal/metrics"
	"rfp-relay-go/internal/notify"
	"rfp-relay-go/internal/pipeline"
	"rfp-relay-go/internal/repository"
	"rfp-relay-go/internal/scheduler"
	"rfp-relay-go/internal/server"
	"rfp-relay-go/internal/service"
)

const (
	shutdownTimeout = 30 * time.Second
	pingTimeout     = 5 * time.Second
)

// App holds the wired components
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Service   *service.Service
	Pipeline  *pipeline.Pipeline
	Scheduler *scheduler.Scheduler

	closers []func() error
}

// SetupLogging configures logrus from the log section. debug overrides the level.
func SetupLogging(cfg config.LogConfig, debug bool) {
	if cfg.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if debug {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
}

// OpenDatabase connects to the configured database and migrates it
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	conn, err := db.Init(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return conn, nil
}

// New wires every component. Close must be called to release connections.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.DB, err = OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		sqlDB, err := a.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.NewMetrics(a.Registry)

	var gmailService *gmail.Service
	if cfg.Mail.Delivery == "gmail" || cfg.Pipeline.Source == "gmail" {
		gmailService, err = gmailapi.NewService(ctx, cfg.Gmail, gmailapi.Scopes...)
		if err != nil {
			return nil, err
		}
	}

	sender, err := newSender(cfg, gmailService)
	if err != nil {
		return nil, err
	}
	fetcher, err := newFetcher(cfg, gmailService)
	if err != nil {
		return nil, err
	}
	gateway, err := a.newGateway(ctx, cfg.AI)
	if err != nil {
		return nil, err
	}
	claimer, err := a.newClaimer(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	notifiers, err := a.newNotifiers(cfg)
	if err != nil {
		return nil, err
	}

	repo := repository.New(a.DB)
	a.Service = service.New(repo, gateway, sender, a.Metrics, service.WithSignature(cfg.Mail.FromName))
	a.Pipeline = pipeline.New(fetcher, repo, gateway, claimer, a.Metrics, pipeline.Options{
		SubjectMarker: cfg.Pipeline.SubjectMarker,
		Lookback:      cfg.Pipeline.Lookback,
		Workers:       cfg.Pipeline.Workers,
	}, notifiers...)
	a.Scheduler = scheduler.NewScheduler(cfg.Scheduler.IntervalMinutes, a.Pipeline)

	return a, nil
}

func newSender(cfg *config.Config, service *gmail.Service) (mailer.Sender, error) {
	from := mailer.From{Address: cfg.Mail.FromAddress, Name: cfg.Mail.FromName}
	switch cfg.Mail.Delivery {
	case "smtp":
		logrus.Infof("Delivering invitations through SMTP %s:%d", cfg.SMTP.Host, cfg.SMTP.Port)
		return mailer.NewSMTPSender(cfg.SMTP, from), nil
	case "gmail":
		logrus.Info("Delivering invitations through the Gmail API")
		return mailer.NewGmailSender(service, gmailapi.UserID(cfg.Gmail), from), nil
	default:
		return nil, fmt.Errorf("unsupported mail delivery %q", cfg.Mail.Delivery)
	}
}

func newFetcher(cfg *config.Config, service *gmail.Service) (mailbox.Fetcher, error) {
	switch cfg.Pipeline.Source {
	case "imap":
		logrus.Info("Using IMAP for email fetching")
		return mailbox.NewIMAPFetcher(cfg.IMAP, cfg.Pipeline.MailboxTimeout), nil
	case "gmail":
		logrus.Info("Using Gmail API for email fetching")
		return mailbox.NewGmailFetcher(service, gmailapi.UserID(cfg.Gmail), cfg.Pipeline.MailboxTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported pipeline source %q", cfg.Pipeline.Source)
	}
}

func (a *App) newGateway(ctx context.Context, cfg config.AIConfig) (*ai.Gateway, error) {
	opts := ai.Options{ExtractModel: cfg.Model, ScoreModel: cfg.ScoreModel, Timeout: cfg.Timeout}

	var completer ai.Completer
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		client, err := openai.NewClient(cfg.APIKey, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		if opts.ExtractModel == "" {
			opts.ExtractModel = openai.DefaultModel
		}
		if opts.ScoreModel == "" {
			opts.ScoreModel = openai.DefaultScoreModel
		}
		completer = client
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		if opts.ExtractModel == "" {
			opts.ExtractModel = gemini.DefaultModel
		}
		completer = client
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}

	logrus.WithFields(logrus.Fields{"provider": cfg.Provider, "model": opts.ExtractModel}).Info("Inference gateway configured")
	return ai.NewGateway(completer, opts, a.Metrics), nil
}

func (a *App) newClaimer(ctx context.Context, cfg config.RedisConfig) (dedup.Claimer, error) {
	if cfg.Addr == "" {
		return dedup.NewMemoryClaimer(cfg.ClaimTTL), nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	a.closers = append(a.closers, rdb.Close)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	logrus.Infof("Using redis at %s for in-flight claims", cfg.Addr)
	return dedup.NewRedisClaimer(rdb, cfg.ClaimTTL), nil
}

func (a *App) newNotifiers(cfg *config.Config) ([]notify.Notifier, error) {
	var notifiers []notify.Notifier

	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, tg)
		logrus.Info("Telegram proposal alerts enabled")
	}

	if cfg.NATS.URL != "" {
		n, conn, err := notify.NewNATS(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return drain(conn) })
		notifiers = append(notifiers, n)
		logrus.Infof("Publishing proposal events to NATS subject %s", cfg.NATS.Subject)
	}

	return notifiers, nil
}

func drain(conn *nats.Conn) error {
	if err := conn.Drain(); err != nil {
		conn.Close()
		return err
	}
	return nil
}

// Serve runs the HTTP API, and the scheduler when enabled, until ctx is done
func (a *App) Serve(ctx context.Context, debug bool) error {
	h := handlers.NewHandlers(a.Service, a.Scheduler, a.Registry)
	router := server.SetupRouter(h, debug)
	srv := &http.Server{
		Addr:         ":" + a.Config.Server.Port,
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	if a.Config.Scheduler.Enabled {
		if err := a.Scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Starting HTTP server on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logrus.Info("Shutting down server...")
	case err := <-errCh:
		serveErr = fmt.Errorf("HTTP server error: %w", err)
	}

	if err := a.Scheduler.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	a.Scheduler.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if serveErr == nil {
		logrus.Info("Server stopped gracefully")
	}
	return serveErr
}

// Close releases connections in reverse order of acquisition
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
