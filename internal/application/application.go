// Package application assembles the employee service from configuration.
// Both the HTTP server and the CLI start from here.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/ems/internal/config"
	"github.com/JonMunkholm/ems/internal/core"
	"github.com/JonMunkholm/ems/internal/notify"
	"github.com/JonMunkholm/ems/internal/storage"
)

// App holds the wired service and the resources it owns.
type App struct {
	Config  *config.Config
	Service *core.Service

	backend     *storage.Backend
	closeEvents func() error
}

// ServiceConfig maps the upload and page settings onto the service limits.
func ServiceConfig(cfg *config.Config) core.ServiceConfig {
	return core.ServiceConfig{
		MaxFileSize:          cfg.Upload.MaxFileSize,
		MaxConcurrentImports: cfg.Upload.MaxConcurrent,
		ImportWait:           cfg.Upload.MaxWaitTime,
		ImportTimeout:        cfg.Upload.Timeout,
		ResetTimeout:         cfg.Upload.ResetTimeout,
		DefaultPageSize:      cfg.Page.DefaultSize,
		MaxPageSize:          cfg.Page.MaxSize,
	}
}

// New opens the store and the event publisher and builds the service.
// Call Close when done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	backend, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	publisher, closeEvents, err := notify.New(cfg.Events)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("connect events: %w", err)
	}

	svc := core.NewService(backend.Store, ServiceConfig(cfg),
		core.WithAuditLog(backend.Audit),
		core.WithPublisher(publisher),
	)

	slog.Info("service ready",
		"store", cfg.Store.Driver,
		"events", cfg.Events.URL != "",
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
	)
	return &App{
		Config:      cfg,
		Service:     svc,
		backend:     backend,
		closeEvents: closeEvents,
	}, nil
}

// Close releases the publisher connection and the store pool.
func (a *App) Close() error {
	var errs []error
	if a.closeEvents != nil {
		if err := a.closeEvents(); err != nil {
			errs = append(errs, fmt.Errorf("close events: %w", err))
		}
	}
	a.backend.Close()
	return errors.Join(errs...)
}
