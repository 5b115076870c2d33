// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/sreeshanth-soma/erpScraper/internal/config"
)

// Manager launches one browser session per scrape run.
type Manager struct {
	browserCfg config.BrowserConfig
	portalCfg  config.PortalConfig
	logger     *zap.Logger
}

// NewManager creates a manager. No browser is started until Open.
func NewManager(browserCfg config.BrowserConfig, portalCfg config.PortalConfig, logger *zap.Logger) *Manager {
	return &Manager{
		browserCfg: browserCfg,
		portalCfg:  portalCfg,
		logger:     logger.Named("browser"),
	}
}

// execOptions builds the allocator options from configuration.
func execOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		// DefaultExecAllocatorOptions turns headless on; the config decides.
		chromedp.Flag("headless", cfg.Headless),
	)
	if cfg.DisableGPU {
		opts = append(opts, chromedp.DisableGPU)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.Width, cfg.Height))
	}

	for _, arg := range cfg.Args {
		// chromedp adds the leading dashes itself.
		arg = strings.TrimLeft(arg, "-")
		if arg == "" {
			continue
		}
		if key, value, ok := strings.Cut(arg, "="); ok {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(arg, true))
		}
	}
	return opts
}

// Open starts a browser and returns its tab together with a waiter bound to
// the configured default timeout. On failure everything already started is
// torn down and no session is returned.
func (m *Manager) Open(ctx context.Context) (PageCloser, *Waiter, error) {
	m.logger.Info("Starting browser.", zap.Bool("headless", m.browserCfg.Headless))

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOptions(m.browserCfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(m.logger.Sugar().Debugf),
		chromedp.WithErrorf(m.logger.Sugar().Warnf),
	)

	s := &Session{
		ctx:           tabCtx,
		cancel:        tabCancel,
		allocCancel:   allocCancel,
		logger:        m.logger,
		navTimeout:    m.portalCfg.NavigationTimeout,
		actionTimeout: m.portalCfg.WaitTimeout,
	}
	if s.navTimeout <= 0 {
		s.navTimeout = DefaultWaitTimeout * 6
	}
	if s.actionTimeout <= 0 {
		s.actionTimeout = DefaultWaitTimeout
	}

	// The first Run launches the process and attaches to the initial tab.
	startup := []chromedp.Action{network.Enable()}
	if len(m.browserCfg.Headers) > 0 {
		headers := make(network.Headers, len(m.browserCfg.Headers))
		for k, v := range m.browserCfg.Headers {
			headers[k] = v
		}
		startup = append(startup, network.SetExtraHTTPHeaders(headers))
	}
	if err := chromedp.Run(tabCtx, startup...); err != nil {
		_ = s.Close()
		return nil, nil, fmt.Errorf("failed to start browser: %w", err)
	}

	waiter := NewWaiter(s, m.portalCfg.WaitTimeout, m.portalCfg.PollInterval)
	m.logger.Debug("Browser ready.")
	return s, waiter, nil
}
