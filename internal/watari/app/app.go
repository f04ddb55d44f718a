// Package app assembles and runs the Watari WhatsApp service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ktsujino/watari/common/environment"
	"github.com/ktsujino/watari/internal/watari/accounts"
	"github.com/ktsujino/watari/internal/watari/chatstate"
	"github.com/ktsujino/watari/internal/watari/config"
	"github.com/ktsujino/watari/internal/watari/pairing"
	"github.com/ktsujino/watari/internal/watari/service"
	"github.com/ktsujino/watari/internal/watari/store"
	"github.com/ktsujino/watari/internal/watari/webhook"
)

// Config holds application configuration.
type Config struct {
	// DatabasePath is the SQLite database file.
	DatabasePath string

	// AccountConfigPath is the optional multi-account YAML document. When
	// empty, configuration comes from environment variables alone and only
	// the default account exists. SIGHUP reloads the file at runtime.
	AccountConfigPath string

	// HTTPAddr is the TCP address for the HTTP server (e.g. ":8080").
	HTTPAddr string

	// AppSecret is the Meta app secret used to authenticate webhook
	// deliveries. When empty, signature validation is skipped.
	AppSecret string

	// WebhookRateLimit is the maximum number of deliveries accepted per
	// receiving phone number per minute. Defaults to
	// webhook.DefaultRateLimit when zero.
	WebhookRateLimit int

	// GraphBaseURL overrides the Graph API endpoint. Empty uses production.
	GraphBaseURL string

	// PairingTTL is the lifetime of pairing codes. Defaults to
	// pairing.DefaultTTL when zero.
	PairingTTL time.Duration

	// SweepInterval is the cadence of the background sweep that prunes
	// expired pairing codes and old dedup rows. Defaults to 10 minutes.
	SweepInterval time.Duration

	// DedupRetention is how long processed-message ids are kept for
	// duplicate detection. Defaults to 24 hours.
	DedupRetention time.Duration

	// Responder is the optional conversational engine. When nil, Watari
	// records traffic and serves the pairing flow but never generates
	// replies.
	Responder service.Responder
}

// App is the assembled Watari application.
type App struct {
	config       *Config
	store        *store.Store
	loader       *config.Loader
	resolver     *accounts.Resolver
	pairer       *pairing.Manager
	service      *service.Service
	webhook      *webhook.Handler
	healthServer *HealthServer
}

// New wires the application. The returned App owns the store; call Stop to
// release it.
func New(cfg *Config) (*App, error) {
	slog.Info("opening database", "path", cfg.DatabasePath)
	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	loader := config.New()
	if cfg.AccountConfigPath != "" {
		if err := loader.LoadFile(cfg.AccountConfigPath); err != nil {
			st.Close()
			return nil, fmt.Errorf("load account config: %w", err)
		}
	}

	resolver := accounts.NewResolver(loader, environment.Getter{})
	tracker := chatstate.New(st, slog.Default())
	pairer := pairing.New(st, cfg.PairingTTL, slog.Default())

	svc := service.New(resolver, st, tracker, pairer, cfg.Responder,
		service.NewSenderFactory(cfg.GraphBaseURL, slog.Default()), slog.Default())

	wh := webhook.New(resolver, svc, webhook.Config{
		AppSecret: cfg.AppSecret,
		RateLimit: cfg.WebhookRateLimit,
	}, slog.Default())

	var healthServer *HealthServer
	if cfg.HTTPAddr != "" {
		healthServer = NewHealthServer(cfg.HTTPAddr, resolver, loader)
		wh.RegisterRoutes(healthServer)
		slog.Info("webhook routes registered on HTTP server", "path", webhook.Path)
	}

	for _, id := range resolver.ListAccountIDs() {
		acct := resolver.ResolveAccount(id)
		slog.Info("account resolved",
			"account_id", acct.AccountID,
			"enabled", acct.Enabled,
			"configured", acct.Configured,
			"token_source", acct.TokenSource,
		)
	}

	return &App{
		config:       cfg,
		store:        st,
		loader:       loader,
		resolver:     resolver,
		pairer:       pairer,
		service:      svc,
		webhook:      wh,
		healthServer: healthServer,
	}, nil
}

// Resolver exposes the account resolver for embedding hosts.
func (a *App) Resolver() *accounts.Resolver { return a.resolver }

// Service exposes the message pipeline for embedding hosts.
func (a *App) Service() *service.Service { return a.service }

// Pairing exposes the pairing manager so hosts can issue codes.
func (a *App) Pairing() *pairing.Manager { return a.pairer }

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.healthServer != nil {
		if err := a.healthServer.Start(ctx); err != nil {
			return err
		}
	}

	go a.sweepLoop(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	slog.Info("watari is running; press Ctrl+C to stop")
	for {
		sig := <-sigCh
		if sig == syscall.SIGHUP {
			a.reloadConfig()
			continue
		}
		slog.Info("shutting down", "signal", sig.String())
		return nil
	}
}

// reloadConfig re-reads the account config file. A failed reload keeps the
// previous config live.
func (a *App) reloadConfig() {
	if a.config.AccountConfigPath == "" {
		return
	}
	if err := a.loader.LoadFile(a.config.AccountConfigPath); err != nil {
		slog.Error("config reload failed; keeping previous config", "err", err)
		return
	}
	slog.Info("config reloaded", "hash", a.loader.Hash()[:12])
}

// sweepLoop periodically prunes expired pairing codes and old dedup rows.
func (a *App) sweepLoop(ctx context.Context) {
	interval := a.config.SweepInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	retention := a.config.DedupRetention
	if retention <= 0 {
		retention = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.pairer.Sweep(ctx); err != nil {
				slog.Warn("pairing sweep failed", "err", err)
			}
			if _, err := a.store.PruneProcessedMessages(ctx, time.Now().Add(-retention)); err != nil {
				slog.Warn("dedup prune failed", "err", err)
			}
		}
	}
}

// Stop releases the application's resources.
func (a *App) Stop() {
	if a.healthServer != nil {
		slog.Info("stopping HTTP server")
		a.healthServer.Stop()
	}
	slog.Info("closing database")
	a.store.Close()
}
