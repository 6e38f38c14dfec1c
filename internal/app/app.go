package app

import (
	"context"
	"time"

	"github.com/dmoreira/transferwire/internal/alert"
	"github.com/dmoreira/transferwire/internal/cache"
	"github.com/dmoreira/transferwire/internal/config"
	"github.com/dmoreira/transferwire/internal/database"
	"github.com/dmoreira/transferwire/internal/dedup"
	"github.com/dmoreira/transferwire/internal/delivery"
	"github.com/dmoreira/transferwire/internal/filter"
	"github.com/dmoreira/transferwire/internal/format"
	"github.com/dmoreira/transferwire/internal/logging"
	"github.com/dmoreira/transferwire/internal/pipeline"
	"github.com/dmoreira/transferwire/internal/ratelimit"
	"github.com/dmoreira/transferwire/internal/rewrite"
	"github.com/dmoreira/transferwire/internal/sources"
)

// App holds all application dependencies
type App struct {
	Config    *config.Config
	Logger    *logging.Logger
	Cache     cache.Cache
	Guard     dedup.Guard
	Limiter   *ratelimit.PostLimiter
	Publisher delivery.Publisher
	Reporter  alert.Reporter
	Pipeline  *pipeline.Orchestrator
	Scheduler *pipeline.Scheduler

	db    *database.DB
	store *database.PostRecordStore
}

// New creates and initializes a new App instance
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	// Initialize logger
	app.Logger = app.initLogger()

	// Initialize cache
	app.Cache = cache.NewMemory(30 * time.Minute)

	// Initialize dedup guard
	app.Guard = app.initGuard()

	// Initialize rate limiter
	app.Limiter = ratelimit.New(cfg.Posting.MaxPostsPerDay, cfg.Posting.MinPostInterval, cfg.Location())

	// Initialize content filter
	contentFilter := filter.New(filter.Config{
		MinEngagement: cfg.Filter.MinEngagement,
		AllowTerms:    cfg.Filter.AllowTerms,
		DenyTerms:     cfg.Filter.DenyTerms,
	})

	// Initialize formatter
	formatter, err := format.New(format.Config{
		TriggerPhrase:   cfg.Format.TriggerPhrase,
		TriggerBanner:   cfg.Format.TriggerBanner,
		CompletedBanner: cfg.Format.CompletedBanner,
		CompletedTerms:  cfg.Format.CompletedTerms,
		MaxLength:       cfg.Posting.MaxPostLength,
	})
	if err != nil {
		return nil, err
	}

	// Initialize rewriter, publisher, reporter
	rewriter := app.initRewriter()
	app.Publisher = app.initPublisher()
	app.Reporter = app.initReporter()

	// Initialize optional post-record persistence
	app.initDatabase()

	// Initialize source monitors
	monitors := app.initMonitors()

	// Initialize pipeline
	var store pipeline.RecordStore
	if app.store != nil {
		store = app.store
	}
	app.Pipeline = pipeline.New(pipeline.Config{
		MaxConcurrentFetches: cfg.Fetch.MaxConcurrent,
		OutageCycles:         cfg.Fetch.OutageCycles,
		DeliveryRetries:      cfg.Delivery.MaxRetries,
		DeliveryBackoff:      2 * time.Second,
	}, monitors, contentFilter, app.Guard, app.Limiter, formatter, rewriter,
		app.Publisher, app.Reporter, store, app.Logger)

	app.Scheduler, err = pipeline.NewScheduler(cfg.Fetch.PollInterval, app.Pipeline, app.Logger)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Run starts the poll schedule and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	a.Logger.Info("Starting monitor schedule", logging.WithFields(map[string]interface{}{
		"interval": a.Config.Fetch.PollInterval.String(),
		"sources":  len(a.Config.Sources),
		"delivery": a.Config.Delivery.Mode,
	}))

	a.Scheduler.Start(ctx)
	<-ctx.Done()
	return nil
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	if closer, ok := a.Reporter.(interface{ Close() }); ok {
		closer.Close()
	}

	if stopper, ok := a.Cache.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	if closer, ok := a.Guard.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.Logger.Error("Dedup guard close error", logging.WithField("error", err.Error()))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("Database close error", logging.WithField("error", err.Error()))
		}
	}

	return nil
}

func (a *App) initLogger() *logging.Logger {
	level := logging.ParseLevel(a.Config.Logging.Level)
	if a.Config.Logging.Format == "json" {
		return logging.NewJSON(level)
	}
	return logging.New(level)
}

func (a *App) initGuard() dedup.Guard {
	switch a.Config.Dedup.Backend {
	case "redis":
		a.Logger.Info("Using Redis dedup backend", logging.WithField("addr", a.Config.Dedup.RedisAddr))
		guard, err := dedup.NewRedis(dedup.RedisConfig{
			Addr: a.Config.Dedup.RedisAddr,
		}, a.Config.Dedup.Retention)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory dedup", logging.WithField("error", err.Error()))
			return dedup.NewMemory(a.Config.Dedup.Retention)
		}
		return guard
	default:
		a.Logger.Info("Using in-memory dedup backend")
		return dedup.NewMemory(a.Config.Dedup.Retention)
	}
}

func (a *App) initRewriter() rewrite.Rewriter {
	bodyBudget := a.Config.Posting.MaxPostLength - 80
	if bodyBudget < 40 {
		bodyBudget = 40
	}

	if a.Config.Rewrite.APIKey == "" {
		a.Logger.Warn("No rewrite API key configured, publishing original text")
		return &rewrite.Passthrough{MaxBody: bodyBudget}
	}

	a.Logger.Info("Using Groq rewrite service", logging.WithField("model", a.Config.Rewrite.Model))
	return rewrite.NewGroq(rewrite.GroqConfig{
		APIKey:  a.Config.Rewrite.APIKey,
		BaseURL: a.Config.Rewrite.BaseURL,
		Model:   a.Config.Rewrite.Model,
		Timeout: a.Config.Rewrite.Timeout,
		MaxBody: bodyBudget,
	})
}

func (a *App) initPublisher() delivery.Publisher {
	switch a.Config.Delivery.Mode {
	case "api":
		a.Logger.Info("Using API delivery", logging.WithField("url", a.Config.Delivery.APIURL))
		return delivery.NewAPI(delivery.APIConfig{
			URL:     a.Config.Delivery.APIURL,
			Token:   a.Config.Delivery.APIToken,
			Timeout: a.Config.Delivery.Timeout,
		})
	default:
		a.Logger.Info("Using simulator delivery, posts are recorded in memory only")
		return delivery.NewSimulator()
	}
}

func (a *App) initReporter() alert.Reporter {
	if a.Config.Alert.WebhookURL == "" {
		a.Logger.Info("No alert webhook configured")
		return alert.NopReporter{}
	}
	return alert.NewWebhook(alert.Config{
		WebhookURL:    a.Config.Alert.WebhookURL,
		SigningSecret: a.Config.Alert.SigningSecret,
		Timeout:       a.Config.Alert.Timeout,
		QueueSize:     a.Config.Alert.QueueSize,
	}, a.Logger)
}

func (a *App) initDatabase() {
	if a.Config.Database.Host == "" {
		a.Logger.Info("Post history persistence disabled")
		return
	}

	dbConfig := database.Config{
		Host:     a.Config.Database.Host,
		Port:     a.Config.Database.Port,
		User:     a.Config.Database.User,
		Password: a.Config.Database.Password,
		Database: a.Config.Database.Database,
		SSLMode:  a.Config.Database.SSLMode,
	}

	db, err := database.New(dbConfig)
	if err != nil {
		a.Logger.Warn("Failed to connect to PostgreSQL, post history disabled", logging.WithField("error", err.Error()))
		return
	}

	if err := db.Migrate(context.Background()); err != nil {
		a.Logger.Warn("Failed to run migrations, post history disabled", logging.WithField("error", err.Error()))
		db.Close()
		return
	}

	a.Logger.Info("Connected to PostgreSQL")
	a.db = db
	a.store = database.NewPostRecordStore(db)
}

func (a *App) initMonitors() []sources.Monitor {
	fetcherConfig := sources.FetcherConfig{
		Timeout:   a.Config.Fetch.Timeout,
		MaxItems:  a.Config.Fetch.ItemsPerCheck,
		UserAgent: a.Config.Fetch.UserAgent,
	}

	monitors := sources.FromRegistry(a.Config.Sources, fetcherConfig, a.Cache)
	a.Logger.Info("Registered source monitors", logging.WithField("count", len(monitors)))
	return monitors
}
