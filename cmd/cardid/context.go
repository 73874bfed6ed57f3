package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/codyseavey/tcg-identify/internal/app"
	"github.com/codyseavey/tcg-identify/internal/config"
	"github.com/codyseavey/tcg-identify/internal/logging"
)

// commandContext lazily builds the service container on first use so
// `cardid --help` works without any environment.
type commandContext struct {
	logLevel *string

	once      sync.Once
	container *app.Container
	err       error
}

func newCommandContext(logLevel *string) *commandContext {
	return &commandContext{logLevel: logLevel}
}

func (c *commandContext) ensureContainer(ctx context.Context) (*app.Container, error) {
	c.once.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.err = fmt.Errorf("load configuration: %w", err)
			return
		}
		if c.logLevel != nil && strings.TrimSpace(*c.logLevel) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevel)
		}

		logger, err := logging.NewLoggerTo(os.Stderr, cfg.Logging.Level, cfg.Logging.File)
		if err != nil {
			c.err = fmt.Errorf("setup logging: %w", err)
			return
		}

		// scan history belongs to the server; the CLI never opens the database
		c.container, c.err = app.Build(ctx, cfg, logger, app.Options{})
	})
	return c.container, c.err
}

func (c *commandContext) close() {
	if c.container == nil {
		return
	}
	if err := c.container.Close(); err != nil {
		c.container.Logger.Warn("close container", zap.Error(err))
	}
	_ = c.container.Logger.Sync()
}
