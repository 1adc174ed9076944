// Package di provides dependency injection container
package di

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ssargent/bootdesc/pkg/api" //nolint:depguard
	"github.com/ssargent/bootdesc/pkg/config"
	"github.com/ssargent/bootdesc/pkg/flash"
	"github.com/ssargent/bootdesc/pkg/history"
	"github.com/ssargent/bootdesc/pkg/updater"
)

// Container holds all the dependencies for the application
type Container struct {
	config  *config.Config
	logger  *slog.Logger
	metrics *api.Metrics
	image   *flash.Image
	history *history.Store
	updater *updater.Updater

	serverFactory api.ServerFactory
}

// NewLogger builds the slog logger described by cfg, writing to w
func NewLogger(cfg config.Logging, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown logging.format %q", cfg.Format)
	}
}

// NewContainer opens the flash image and, when enabled, the snapshot
// history named by cfg, and wires an updater over them. Logs go to
// logOutput. The caller must Close the container.
func NewContainer(cfg *config.Config, logOutput io.Writer) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := NewLogger(cfg.Logging, logOutput)
	if err != nil {
		return nil, err
	}

	regionOpts, err := cfg.RegionOptions()
	if err != nil {
		return nil, err
	}

	image, err := flash.Open(cfg.Region.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to open flash image: %w", err)
	}

	c := &Container{
		config:        cfg,
		logger:        logger,
		metrics:       api.NewMetrics(),
		image:         image,
		serverFactory: api.NewServerFactory(),
	}

	if cfg.History.Enabled {
		c.history, err = history.Open(cfg.History.Dir)
		if err != nil {
			image.Close()
			return nil, fmt.Errorf("failed to open snapshot history: %w", err)
		}
	}

	c.updater = updater.New(c.image, c.history, updater.Config{
		Offset:        cfg.Region.Offset,
		Size:          cfg.Region.Size,
		RegionOptions: regionOpts,
		Logger:        logger,
		Observer:      c.metrics,
	})

	logger.Debug("container ready",
		"image", cfg.Region.Image,
		"offset", cfg.Region.Offset,
		"size", cfg.Region.Size,
		"history", cfg.History.Enabled)

	return c, nil
}

// Config returns the configuration the container was built from
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Metrics returns the metrics that observe the updater
func (c *Container) Metrics() *api.Metrics {
	return c.metrics
}

// Updater returns the region updater
func (c *Container) Updater() *updater.Updater {
	return c.updater
}

// ServerConfig returns the API server settings
func (c *Container) ServerConfig() api.ServerConfig {
	return api.ServerConfig{
		Port:   c.config.Server.Port,
		Bind:   c.config.Server.Bind,
		APIKey: c.config.Security.APIKey,
	}
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// Close releases the history store and the flash image
func (c *Container) Close() error {
	var errs []error
	if c.history != nil {
		errs = append(errs, c.history.Close())
	}
	errs = append(errs, c.image.Close())
	return errors.Join(errs...)
}
