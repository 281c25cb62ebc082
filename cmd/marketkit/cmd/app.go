package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/marketkit/marketkit/internal/api"
	"github.com/marketkit/marketkit/internal/config"
	"github.com/marketkit/marketkit/internal/metrics"
	"github.com/marketkit/marketkit/internal/service"
	"github.com/marketkit/marketkit/internal/storage"
)

// app bundles the wired client core for one CLI invocation.
type app struct {
	cfg      *config.Config
	store    storage.Store
	client   *api.Client
	session  *service.SessionService
	cart     *service.CartService
	wishlist *service.WishlistService
	metrics  *metrics.Metrics
	logger   *slog.Logger

	closers []func()
}

// buildApp loads config, wires storage, client, and services, restores a
// persisted session, and loads the cart from the matching source. The
// caller must Close() to drain pending server writes.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if storePath != "" {
		cfg.Storage.Path = storePath
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Debug("loaded config", "file", configFile)
	}

	m := metrics.New()

	a := &app{cfg: cfg, metrics: m, logger: logger}

	switch cfg.Storage.Driver {
	case "sqlite":
		s, err := storage.OpenSQLiteStore(cfg.Storage.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = s
		a.closers = append(a.closers, func() { _ = s.Close() })
	case "memory":
		a.store = storage.NewMemoryStore()
	default:
		a.store = storage.NewFileStore(cfg.Storage.Path, logger)
	}

	// The client needs the session's token and the session needs the
	// client; the closure breaks the cycle.
	a.client = api.NewClient(
		api.WithBaseURL(cfg.API.BaseURL),
		api.WithTimeout(cfg.API.Timeout),
		api.WithCacheTTL(cfg.API.CacheTTL),
		api.WithLogger(logger),
		api.WithTokenSource(api.TokenSourceFunc(func() string {
			if a.session == nil {
				return ""
			}
			return a.session.Token()
		})),
	)

	a.session = service.NewSessionService(a.store, a.client, m, logger)
	a.cart = service.NewCartEngine(ctx, a.store, a.client, a.session, m, logger,
		service.WithQueueSize(cfg.Sync.QueueSize),
		service.WithWriteRate(cfg.Sync.WritesPerSecond, cfg.Sync.Burst),
	)
	a.closers = append(a.closers, a.cart.Close)
	a.wishlist = service.NewWishlistService(a.store, a.client, a.session, m, logger)

	if _, ok := a.session.Load(ctx); ok {
		if _, err := a.cart.LoadFromServer(ctx); err != nil {
			logger.Warn("starting with empty cart", "error", err)
		}
	} else {
		a.cart.LoadFromStorage(ctx)
	}

	return a, nil
}

// Close drains the sync queue and releases resources, in reverse wiring
// order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
