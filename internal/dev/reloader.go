package dev

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mnplowfinder/plowfinder/internal/errors"
	"github.com/mnplowfinder/plowfinder/internal/metrics"
	"github.com/mnplowfinder/plowfinder/internal/registry"
)

// ReloaderConfig configures a Reloader.
type ReloaderConfig struct {
	// Load builds a fresh registry from the data file.
	Load func() (*registry.Registry, error)

	// Export, if set, re-exports the site for the new registry before it
	// goes live.
	Export func(ctx context.Context, reg *registry.Registry) error

	// Apply installs the new registry (typically Server.Swap).
	Apply func(reg *registry.Registry) error

	// Hub is notified of the outcome. Optional.
	Hub *Hub

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Reloader rebuilds and installs the registry when the data file changes.
type Reloader struct {
	mu     sync.Mutex
	config ReloaderConfig
	logger *slog.Logger
}

// NewReloader creates a reloader.
func NewReloader(config ReloaderConfig) *Reloader {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{
		config: config,
		logger: logger.With("component", "reload"),
	}
}

// Reload runs one load, export, apply cycle. Reloads are serialized. On
// any failure the previously applied registry stays in place and browsers
// are shown the error.
func (r *Reloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.reload(ctx)
	r.config.Metrics.Reloaded(err)

	if err != nil {
		r.logger.Error("reload failed, keeping previous data", "error", err)
		if r.config.Hub != nil {
			r.config.Hub.NotifyError(message(err))
		}
		return err
	}

	if r.config.Hub != nil {
		r.config.Hub.ClearError()
		r.config.Hub.NotifyReload()
	}
	return nil
}

func (r *Reloader) reload(ctx context.Context) error {
	if r.config.Load == nil {
		return fmt.Errorf("dev: reloader has no Load function")
	}

	reg, err := r.config.Load()
	if err != nil {
		return err
	}

	if r.config.Export != nil {
		if err := r.config.Export(ctx, reg); err != nil {
			return err
		}
	}

	if r.config.Apply != nil {
		if err := r.config.Apply(reg); err != nil {
			return err
		}
	}

	cities, providers := reg.Len()
	r.logger.Info("reloaded", "cities", cities, "providers", providers)
	return nil
}

// message renders err for the browser overlay.
func message(err error) string {
	var pe *errors.Error
	if stderrors.As(err, &pe) && pe.Detail != "" {
		return pe.FormatCompact() + "\n\n" + pe.Detail
	}
	return err.Error()
}
