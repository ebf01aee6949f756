// Package control wires the responder's components together and manages
// their lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/vietddude/sentinel/internal/classify"
	"github.com/vietddude/sentinel/internal/core/config"
	"github.com/vietddude/sentinel/internal/core/worker"
	"github.com/vietddude/sentinel/internal/health"
	"github.com/vietddude/sentinel/internal/infra/redis"
	"github.com/vietddude/sentinel/internal/infra/storage"
	"github.com/vietddude/sentinel/internal/infra/storage/memory"
	"github.com/vietddude/sentinel/internal/infra/storage/postgres"
	"github.com/vietddude/sentinel/internal/ingest"
	"github.com/vietddude/sentinel/internal/notify"
	"github.com/vietddude/sentinel/internal/orchestrate"
	"github.com/vietddude/sentinel/internal/resolve"
	"github.com/vietddude/sentinel/internal/resolve/strategies"
)

// Options are runtime overrides from the CLI.
type Options struct {
	DryRun       bool
	PollInterval time.Duration
	// Source overrides the configured telemetry source (offline analysis).
	Source ingest.Source
}

// Responder is the main application struct that manages the
// incident-response lifecycle.
type Responder struct {
	cfg          *config.AppConfig
	opts         Options
	classifier   *classify.Classifier
	catalog      *resolve.Catalog
	engine       *resolve.Engine
	policy       *orchestrate.Policy
	dispatcher   *orchestrate.Dispatcher
	notifier     *notify.Dispatcher
	poller       *ingest.Poller
	pruner       *worker.Pruner
	healthMon    *health.Monitor
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redis.Client
	log          *slog.Logger

	cancel context.CancelFunc
}

// NewResponder creates a Responder with all dependencies initialized.
func NewResponder(cfg *config.AppConfig, opts Options) (*Responder, error) {
	r := &Responder{cfg: cfg, opts: opts, log: slog.Default()}

	// 1. Storage
	var incidentRepo storage.IncidentRepository
	var eventRepo storage.EventRepository
	var attemptRepo storage.AttemptRepository

	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		r.db = db
		incidentRepo = postgres.NewIncidentRepo(db)
		eventRepo = postgres.NewEventRepo(db)
		attemptRepo = postgres.NewAttemptRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		incidentRepo = memory.NewIncidentRepo(store)
		eventRepo = memory.NewEventRepo(store)
		attemptRepo = memory.NewAttemptRepo(store)
		slog.Info("Using Memory storage")
	}

	// 2. Redis (optional; enables cross-process locks and the durable
	// notification retry queue)
	if cfg.Redis.URL != "" {
		rc, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		r.redisClient = rc
		slog.Info("Redis connected")
	}

	// 3. Classifier
	rules, err := classify.LoadRules(cfg.Classifier.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load classifier rules: %w", err)
	}
	r.classifier = classify.New(rules, classify.Config{
		CriticalCountThreshold: cfg.Classifier.CriticalCountThreshold,
	}, r.log)

	// 4. Strategy catalog + engine
	r.catalog = resolve.NewCatalog()
	deps := strategies.Deps{DefaultService: cfg.Resolution.DefaultService}
	if r.db != nil {
		deps.Pool = &strategies.SQLPoolController{DB: r.db.DB}
	}
	if cfg.Resolution.TokenRefreshURL != "" {
		deps.Tokens = &strategies.HTTPTokenSource{RefreshURL: cfg.Resolution.TokenRefreshURL}
	}
	if cfg.Resolution.DefaultService != "" {
		deps.Procs = &strategies.ExecProcessManager{}
	}
	if len(cfg.Resolution.TempDirs) > 0 {
		maxAge := cfg.Resolution.TempMaxAge
		if maxAge <= 0 {
			maxAge = 24 * time.Hour
		}
		deps.Disk = &strategies.DirCleaner{Dirs: cfg.Resolution.TempDirs, MaxAge: maxAge}
	}
	if err := strategies.Register(r.catalog, deps); err != nil {
		return nil, fmt.Errorf("failed to register strategies: %w", err)
	}
	r.catalog.Seal()
	r.engine = resolve.NewEngine(r.catalog, r.log)

	// 5. Notifications
	var gateway notify.Gateway = &notify.LogGateway{Log: r.log}
	if cfg.Notify.WebhookURL != "" {
		gateway = &notify.WebhookGateway{URL: cfg.Notify.WebhookURL}
	}
	backoff := &notify.ExponentialBackoff{
		InitialDelay: cfg.Notify.InitialDelay,
		MaxDelay:     cfg.Notify.MaxDelay,
		MaxAttempts:  cfg.Notify.MaxRetries,
		Classifier:   notify.ClassifyDeliveryError,
	}
	var pending notify.PendingQueue
	if r.redisClient != nil {
		pending = r.redisClient
	}
	r.notifier = notify.NewDispatcher(gateway, backoff, pending, cfg.Notify.SendTimeout, r.log)

	// 6. Policy + worker pool
	var coord orchestrate.Coordinator
	if r.redisClient != nil {
		coord = r.redisClient
	}
	r.policy = orchestrate.NewPolicy(orchestrate.PolicyConfig{
		Environment:            cfg.Environment,
		CoolDownWindow:         cfg.Orchestration.CoolDownWindow,
		CriticalCountThreshold: cfg.Classifier.CriticalCountThreshold,
		ResolutionEnabled:      cfg.Resolution.Enabled,
		ConfidenceThreshold:    cfg.Resolution.ConfidenceThreshold(cfg.Environment),
		AllowedSafetyLevels:    cfg.Resolution.SafetyLevels(cfg.Environment),
		StrategyTimeout:        cfg.Resolution.StrategyTimeout,
		LockTTL:                cfg.Resolution.LockTTL,
		DryRun:                 opts.DryRun,
	}, r.classifier, r.engine, r.notifier, incidentRepo, attemptRepo, coord, r.log)

	r.dispatcher = orchestrate.NewDispatcher(r.policy, r.classifier,
		cfg.Orchestration.QueueSize, cfg.Orchestration.Workers, r.log)

	// 7. Telemetry source + poller
	source := opts.Source
	if source == nil {
		switch {
		case cfg.Ingest.URL != "":
			source = &ingest.HTTPSource{URL: cfg.Ingest.URL, Token: cfg.Ingest.Token}
		case cfg.Ingest.EventsFile != "":
			source = &ingest.FileSource{Path: cfg.Ingest.EventsFile}
		default:
			return nil, fmt.Errorf("no telemetry source configured: set ingest.url or ingest.events_file")
		}
	}
	interval := cfg.Ingest.PollInterval
	if opts.PollInterval > 0 {
		interval = opts.PollInterval
	}
	r.poller = ingest.NewPoller(source, r.dispatcher, eventRepo, interval, r.log)

	// 8. Health + retention
	var backlog health.NotificationBacklog
	if r.redisClient != nil {
		backlog = r.redisClient
	}
	r.healthMon = health.NewMonitor(incidentRepo, attemptRepo, backlog, health.DefaultThresholds())
	r.healthServer = health.NewServer(r.healthMon, cfg.Server.Port)
	r.pruner = worker.NewPruner(cfg.Orchestration.Retention, incidentRepo, eventRepo, r.log)

	return r, nil
}

// Start launches all background components.
func (r *Responder) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.notifier.Start(runCtx)
	r.dispatcher.Start(runCtx)
	r.poller.Start(runCtx)
	go r.pruner.Start(runCtx)

	go func() {
		slog.Info("Health server listening", "port", r.cfg.Server.Port)
		if err := r.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Health server failed", "error", err)
		}
	}()

	slog.Info("Responder started",
		"environment", r.cfg.Environment,
		"strategies", r.catalog.Len(),
		"dry_run", r.opts.DryRun)
	return nil
}

// Stop shuts components down in dependency order: stop accepting events,
// drain the decision loop, flush notifications, then release infra.
func (r *Responder) Stop(ctx context.Context) error {
	r.poller.Stop()
	r.dispatcher.Stop()
	r.notifier.Stop()

	if r.cancel != nil {
		r.cancel()
	}
	if err := r.healthServer.Stop(ctx); err != nil {
		slog.Warn("Health server shutdown error", "error", err)
	}
	if r.redisClient != nil {
		_ = r.redisClient.Close()
	}
	if r.db != nil {
		_ = r.db.Close()
	}
	return nil
}

// AnalyzeOnce runs a single offline decision pass over the configured
// source and returns the number of events processed.
func (r *Responder) AnalyzeOnce(ctx context.Context) int {
	r.notifier.Start(ctx)
	r.dispatcher.Start(ctx)
	n := r.poller.PollOnce(ctx)
	r.dispatcher.Stop()
	r.notifier.Stop()
	return n
}
