// File: cmd/components.go
package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sreeshanth-soma/erpScraper/internal/browser"
	"github.com/sreeshanth-soma/erpScraper/internal/config"
	"github.com/sreeshanth-soma/erpScraper/internal/diag"
	"github.com/sreeshanth-soma/erpScraper/internal/scraper"
	"github.com/sreeshanth-soma/erpScraper/internal/store"
)

// components are the long-lived objects shared by scrape and serve.
type components struct {
	Store  store.Repository
	Runner *scraper.Runner
	logger *zap.Logger
}

// openStore is swapped in tests.
var openStore = store.Open

// initializeComponents opens the record store and wires the scrape runner to a
// chromedp browser manager. The caller must call Shutdown.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	repo, err := openStore(ctx, cfg.Database, cfg.Profile.DefaultGoal, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	c := &components{Store: repo, logger: logger}

	manager := browser.NewManager(cfg.Browser, cfg.Portal, logger)
	dumper := diag.NewDumper(cfg.Portal.DebugHTMLFile, logger)
	c.Runner, err = scraper.NewRunner(cfg, manager, repo, dumper, logger)
	if err != nil {
		c.Shutdown()
		return nil, fmt.Errorf("failed to create scrape runner: %w", err)
	}
	return c, nil
}

// Shutdown releases the record store.
func (c *components) Shutdown() {
	if c == nil || c.Store == nil {
		return
	}
	if err := c.Store.Close(); err != nil {
		c.logger.Warn("Error while closing the record store.", zap.Error(err))
	}
}
