// Package cli provides the initialization shared by cmd/futurebank and
// cmd/futurebank-worker: logging, configuration and the ledger service.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"futurebank/internal/backend"
	"futurebank/internal/catalog"
	"futurebank/internal/config"
	"futurebank/internal/log"
	"futurebank/internal/services"
)

// SetupLogger builds the process logger from LOG_LEVEL and installs it as
// the slog default. A nil out means stdout.
func SetupLogger(level, component string, out io.Writer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Component = component
	if out != nil {
		cfg.Output = out
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// App is a ready ledger service plus the resources it holds.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Location *time.Location
	Service  *services.LedgerService
	backend  *backend.BackendResult
}

// Close releases the backend.
func (a *App) Close() error {
	if a == nil || a.backend == nil {
		return nil
	}
	return a.backend.Close()
}

// NewApp opens the configured backend and builds the ledger service on it.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}

	svc := services.NewLedgerService(res.Store, cat, services.Options{
		Users:        cfg.Users,
		Policy:       services.Policy(cfg.RedemptionPolicy),
		PointsPerYen: cfg.PointsPerYen,
		Location:     loc,
		Logger:       logger,
	})
	logger.Info("Ledger ready",
		log.FieldBackend, bcfg.Type.String(),
		log.FieldPolicy, cfg.RedemptionPolicy,
		"users", cfg.Users,
		"tickets", len(cat.Tickets),
		"actions", len(cat.Actions))

	return &App{
		Config:   cfg,
		Logger:   logger,
		Location: loc,
		Service:  svc,
		backend:  res,
	}, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
