package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go-casting-scout/internal/archive"
	"go-casting-scout/internal/browser"
	"go-casting-scout/internal/config"
	"go-casting-scout/internal/dedup"
	"go-casting-scout/internal/httpclient"
	"go-casting-scout/internal/metrics"
	"go-casting-scout/internal/notify"
	"go-casting-scout/internal/pipeline"
	"go-casting-scout/internal/rules"
	"go-casting-scout/internal/scraper/reddit"
	"go-casting-scout/internal/scraper/registry"

	"go.uber.org/zap"
)

// App is a fully wired scout: the runner plus the resources it owns.
type App struct {
	Runner   *Runner
	Store    *dedup.Store
	Rules    *rules.Rules
	Metrics  *metrics.Metrics
	Postgres *archive.Postgres // nil unless DATABASE_URL is set

	closers []io.Closer
	log     *zap.SugaredLogger
}

// Options tweak Wire for the CLI and the daemon.
type Options struct {
	DryRun  bool
	Metrics *metrics.Metrics
	// Console receives the digest in dry-run mode or when no channel is
	// configured. Defaults to stdout.
	Console io.Writer
}

// OpenStore opens the seen-state store on the configured backend.
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*dedup.Store, error) {
	var backend dedup.Backend
	switch cfg.Seen.Backend {
	case config.BackendFile:
		backend = dedup.NewFileBackend(cfg.Seen.Path)
	case config.BackendSQLite:
		b, err := dedup.NewSQLiteBackend(cfg.Seen.Path)
		if err != nil {
			return nil, err
		}
		backend = b
	case config.BackendRedis:
		client, err := dedup.DialRedis(ctx, cfg.Seen.RedisURL)
		if err != nil {
			return nil, err
		}
		backend = dedup.NewRedisBackend(client, cfg.Seen.RedisKey)
	default:
		return nil, fmt.Errorf("unknown seen backend %q", cfg.Seen.Backend)
	}

	store, err := dedup.New(ctx, backend, dedup.WithLogger(log.Named("seen")))
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return store, nil
}

// Notifiers builds the delivery channels. With none configured, or in
// dry-run, the digest goes to the console.
func Notifiers(cfg *config.Config, console io.Writer, dryRun bool, log *zap.SugaredLogger) (notify.Notifier, error) {
	if console == nil {
		console = os.Stdout
	}
	if dryRun {
		return notify.NewConsole(console), nil
	}

	var channels []notify.Notifier
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
		channels = append(channels, tg)
	}
	if cfg.DiscordWebhook != "" {
		channels = append(channels, notify.NewDiscord(cfg.DiscordWebhook))
	}
	if cfg.EmailConfigured() {
		channels = append(channels, notify.NewEmail(notify.EmailConfig{
			APIKey:     cfg.SendGridAPIKey,
			From:       cfg.SenderEmail,
			To:         cfg.RecipientEmail,
			RetryDelay: cfg.EmailRetryDelay,
		}, log.Named("email")))
	}
	if len(channels) == 0 {
		log.Warn("No delivery channel configured, printing digest to console")
		return notify.NewConsole(console), nil
	}
	return notify.NewMulti(log, channels...), nil
}

// Wire builds an App from cfg. Callers must Close it.
func Wire(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, opts Options) (_ *App, err error) {
	app := &App{Metrics: opts.Metrics, log: log}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if app.Rules, err = rules.Load(cfg.RulesPath); err != nil {
		return nil, err
	}
	if app.Store, err = OpenStore(ctx, cfg, log); err != nil {
		return nil, err
	}
	app.closers = append(app.closers, app.Store)

	httpOpts := httpclient.Options{
		ProxyURL:   cfg.HTTP.ProxyURL,
		MinDelay:   cfg.HTTP.MinDelay,
		MaxDelay:   cfg.HTTP.MaxDelay,
		MaxRetries: cfg.HTTP.MaxRetries,
		Logger:     log.Named("http"),
	}
	web, err := httpclient.New(httpOpts)
	if err != nil {
		return nil, err
	}
	httpOpts.UserAgent = reddit.UserAgent
	redditClient, err := httpclient.New(httpOpts)
	if err != nil {
		return nil, err
	}

	deps := registry.Deps{HTTP: web, Reddit: redditClient, Rules: app.Rules, Log: log}
	if registry.NeedsBrowser(cfg) {
		mgr := browser.NewManager(browser.Options{
			Headless:      true,
			ScreenshotDir: filepath.Join(cfg.ArchiveDir, "screenshots"),
			Logger:        log.Named("browser"),
		})
		app.closers = append(app.closers, mgr)
		deps.Browser = mgr
	}
	sources, unknown := registry.Build(cfg, deps)
	if len(unknown) > 0 {
		log.Warnw("Ignoring unknown source toggles", "sources", unknown)
	}
	if len(sources) == 0 {
		return nil, errors.New("no sources enabled")
	}

	notifier, err := Notifiers(cfg, opts.Console, opts.DryRun, log)
	if err != nil {
		return nil, err
	}

	archivers := []archive.Archiver{archive.NewFile(cfg.ArchiveDir)}
	if cfg.DatabaseURL != "" {
		pg, err := archive.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		app.Postgres = pg
		app.closers = append(app.closers, pg)
		archivers = append(archivers, pg)
	}

	app.Runner = New(Deps{
		Sources:   sources,
		Pipeline:  pipeline.New(app.Rules, app.Store, pipeline.WithLogger(log.Named("pipeline"))),
		Store:     app.Store,
		Notifier:  notifier,
		Archivers: archivers,
		Metrics:   opts.Metrics,
		Log:       log,
		DryRun:    opts.DryRun,
	})
	return app, nil
}

// RunOnce runs a single cycle bounded by timeout.
func (a *App) RunOnce(ctx context.Context, timeout time.Duration) (*Report, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return a.Runner.Run(ctx)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
