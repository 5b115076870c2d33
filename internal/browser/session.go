// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// inspectScript returns an array of element snapshots. Visibility follows what
// a user would see: no display:none or visibility:hidden, non-zero opacity and
// a non-empty box (which also covers hidden ancestors).
const inspectScript = `(function(sel, all) {
	function describe(el) {
		const style = window.getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		const visible = style.display !== 'none' &&
			style.visibility !== 'hidden' &&
			style.opacity !== '0' &&
			rect.width > 0 && rect.height > 0;
		return {
			present: true,
			visible: visible,
			enabled: !el.disabled,
			id: el.id || '',
			text: el.innerText || el.textContent || ''
		};
	}
	if (all) {
		return Array.from(document.querySelectorAll(sel)).map(describe);
	}
	const el = document.querySelector(sel);
	return el ? [describe(el)] : [];
})(%s, %t)`

// Session is a single chromedp tab plus the browser process it owns.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger

	navTimeout    time.Duration
	actionTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

var (
	_ PageCloser   = (*Session)(nil)
	_ ActionRunner = (*Session)(nil)
)

// run executes actions on the tab, canceled by either the tab or ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		// Report the caller's context error first so deadlines stay recognisable.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.ctx.Err() != nil {
			return fmt.Errorf("browser session closed: %w", s.ctx.Err())
		}
		return err
	}
	return nil
}

// RunActions runs chromedp actions on the tab, bounded only by ctx. The Waiter
// uses it for chromedp's wait and poll actions.
func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	return s.run(ctx, actions...)
}

// Navigate loads url and waits for the load event, bounded by the navigation timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating.", zap.String("url", url))
	navCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	defer cancel()

	if err := s.run(navCtx, chromedp.Navigate(url)); err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return &TimeoutError{Condition: "navigation to " + url, Bound: s.navTimeout}
		}
		if ctx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", err)
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (s *Session) inspect(ctx context.Context, selector string, all bool) ([]ElementState, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to encode selector: %w", err)
	}
	var states []ElementState
	script := fmt.Sprintf(inspectScript, quoted, all)
	if err := s.run(ctx, chromedp.Evaluate(script, &states)); err != nil {
		return nil, fmt.Errorf("failed to inspect %q: %w", selector, err)
	}
	return states, nil
}

func (s *Session) Inspect(ctx context.Context, selector string) (ElementState, error) {
	states, err := s.inspect(ctx, selector, false)
	if err != nil || len(states) == 0 {
		return ElementState{}, err
	}
	return states[0], nil
}

func (s *Session) InspectAll(ctx context.Context, selector string) ([]ElementState, error) {
	return s.inspect(ctx, selector, true)
}

// withAction bounds element interactions, which in chromedp wait for the node
// to exist and would otherwise block on a vanished element.
func (s *Session) withAction(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.actionTimeout)
}

func (s *Session) SendKeys(ctx context.Context, selector, text string) error {
	actCtx, cancel := s.withAction(ctx)
	defer cancel()
	if err := s.run(actCtx, chromedp.SendKeys(selector, text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to type into %q: %w", selector, err)
	}
	return nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	actCtx, cancel := s.withAction(ctx)
	defer cancel()
	if err := s.run(actCtx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return nil
}

func (s *Session) OuterHTML(ctx context.Context, selector string) (string, error) {
	actCtx, cancel := s.withAction(ctx)
	defer cancel()
	var html string
	if err := s.run(actCtx, chromedp.OuterHTML(selector, &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read markup of %q: %w", selector, err)
	}
	return html, nil
}

func (s *Session) Source(ctx context.Context) (string, error) {
	return s.OuterHTML(ctx, "html")
}

// Close shuts the browser down. It is safe on a nil Session and only the
// first call does any work.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing browser session.")
		if s.ctx != nil && s.ctx.Err() == nil {
			// Graceful close; falls through to the hard cancel below on failure.
			if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.closeErr = fmt.Errorf("failed to close browser: %w", err)
			}
		}
		if s.cancel != nil {
			s.cancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
		s.logger.Info("Browser session closed.")
	})
	return s.closeErr
}
