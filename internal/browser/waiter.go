// internal/browser/waiter.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Default bounds for blocking condition checks.
const (
	DefaultWaitTimeout  = 10 * time.Second
	DefaultBulkTimeout  = 20 * time.Second
	DefaultPollInterval = 250 * time.Millisecond
)

// TimeoutError is returned when a condition was not met within its bound.
// It unwraps to context.DeadlineExceeded.
type TimeoutError struct {
	Condition string
	Bound     time.Duration
	// LastErr is the most recent probe failure, if any, seen while polling.
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s", e.Bound, e.Condition)
	if e.LastErr != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.LastErr)
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// Condition is a named probe evaluated against a Page.
type Condition struct {
	Name  string
	Check func(ctx context.Context, p Page) (bool, error)

	// tasks builds the equivalent chromedp wait for pages backed by a live tab.
	tasks func(interval time.Duration) chromedp.Tasks
}

// ActionRunner is implemented by pages backed by a live chromedp tab. The
// Waiter runs chromedp wait actions on them instead of polling snapshots.
type ActionRunner interface {
	RunActions(ctx context.Context, actions ...chromedp.Action) error
}

// Waiter polls conditions against one page with a fixed bound and interval.
type Waiter struct {
	page     Page
	timeout  time.Duration
	interval time.Duration
}

// NewWaiter returns a waiter for page. Non-positive values fall back to the defaults.
func NewWaiter(page Page, timeout, interval time.Duration) *Waiter {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Waiter{page: page, timeout: timeout, interval: interval}
}

// WithTimeout returns a copy of the waiter using a different bound.
func (w *Waiter) WithTimeout(d time.Duration) *Waiter {
	cp := *w
	if d > 0 {
		cp.timeout = d
	}
	return &cp
}

// Timeout is the bound applied by Until.
func (w *Waiter) Timeout() time.Duration { return w.timeout }

// Until blocks until cond holds, the bound elapses, or ctx is done.
// On a live tab the condition's chromedp wait runs in the browser. Otherwise
// the Check probe is polled; probe errors count as "not yet" because the page
// may be mid-navigation, and the last one is reported on timeout.
func (w *Waiter) Until(ctx context.Context, cond Condition) error {
	waitCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if runner, ok := w.page.(ActionRunner); ok && cond.tasks != nil {
		return w.untilActions(ctx, waitCtx, runner, cond)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var lastErr error
	for {
		ok, err := cond.Check(waitCtx, w.page)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-waitCtx.Done():
			return w.expired(ctx, cond, lastErr)
		case <-ticker.C:
		}
	}
}

// untilActions runs the chromedp wait for cond. A navigation destroys the
// execution context a wait runs in, so failures before the bound are retried.
func (w *Waiter) untilActions(ctx, waitCtx context.Context, runner ActionRunner, cond Condition) error {
	var lastErr error
	for {
		err := runner.RunActions(waitCtx, cond.tasks(w.interval))
		if err == nil {
			return nil
		}
		if waitCtx.Err() == nil {
			lastErr = err
		}

		select {
		case <-waitCtx.Done():
			return w.expired(ctx, cond, lastErr)
		case <-time.After(w.interval):
		}
	}
}

func (w *Waiter) expired(ctx context.Context, cond Condition, lastErr error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("wait for %s canceled: %w", cond.Name, ctx.Err())
	}
	return &TimeoutError{Condition: cond.Name, Bound: w.timeout, LastErr: lastErr}
}

// AllVisible waits until at least one element matches selector and every
// match is visible, then returns the matches.
func (w *Waiter) AllVisible(ctx context.Context, selector string) ([]ElementState, error) {
	var found []ElementState
	err := w.Until(ctx, Condition{
		Name: fmt.Sprintf("visibility of all %q", selector),
		Check: func(ctx context.Context, p Page) (bool, error) {
			elems, err := p.InspectAll(ctx, selector)
			if err != nil || len(elems) == 0 {
				return false, err
			}
			for _, e := range elems {
				if !e.Visible {
					return false, nil
				}
			}
			found = elems
			return true, nil
		},
		tasks: func(time.Duration) chromedp.Tasks {
			return chromedp.Tasks{chromedp.WaitVisible(selector, chromedp.ByQueryAll)}
		},
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		// The chromedp wait only blocks; take the snapshot afterwards.
		if found, err = w.page.InspectAll(ctx, selector); err != nil {
			return nil, err
		}
	}
	return found, nil
}

// invisibleJS holds when no element matches or the first match is hidden,
// using the same visibility rules as inspectScript.
const invisibleJS = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return true;
	const style = window.getComputedStyle(el);
	const rect = el.getBoundingClientRect();
	return style.display === 'none' || style.visibility === 'hidden' ||
		style.opacity === '0' || rect.width === 0 || rect.height === 0;
}`

const textContainsJS = `(sel, text) => {
	const el = document.querySelector(sel);
	return !!el && (el.innerText || el.textContent || '').includes(text);
}`

func inspecting(name, selector string, pred func(ElementState) bool, tasks func(time.Duration) chromedp.Tasks) Condition {
	return Condition{
		Name: fmt.Sprintf("%s of %q", name, selector),
		Check: func(ctx context.Context, p Page) (bool, error) {
			st, err := p.Inspect(ctx, selector)
			if err != nil {
				return false, err
			}
			return pred(st), nil
		},
		tasks: tasks,
	}
}

// polling evaluates fn in the page until it returns true. The bound comes from
// the caller's context, so the poll's own timeout is disabled.
func polling(fn string, args ...any) func(time.Duration) chromedp.Tasks {
	return func(interval time.Duration) chromedp.Tasks {
		var ok bool
		return chromedp.Tasks{chromedp.PollFunction(fn, &ok,
			chromedp.WithPollingArgs(args...),
			chromedp.WithPollingInterval(interval),
			chromedp.WithPollingTimeout(0),
		)}
	}
}

// Present holds once an element matching selector is attached to the DOM.
func Present(selector string) Condition {
	return inspecting("presence", selector, func(e ElementState) bool { return e.Present },
		func(time.Duration) chromedp.Tasks {
			return chromedp.Tasks{chromedp.WaitReady(selector, chromedp.ByQuery)}
		})
}

// Visible holds once the first match is rendered.
func Visible(selector string) Condition {
	return inspecting("visibility", selector, func(e ElementState) bool { return e.Present && e.Visible },
		func(time.Duration) chromedp.Tasks {
			return chromedp.Tasks{chromedp.WaitVisible(selector, chromedp.ByQuery)}
		})
}

// Clickable holds once the first match is visible and enabled.
func Clickable(selector string) Condition {
	return inspecting("clickability", selector, ElementState.Clickable,
		func(time.Duration) chromedp.Tasks {
			return chromedp.Tasks{
				chromedp.WaitVisible(selector, chromedp.ByQuery),
				chromedp.WaitEnabled(selector, chromedp.ByQuery),
			}
		})
}

// Invisible holds when no element matches or the first match is hidden.
// chromedp.WaitNotVisible needs the node to exist, so this one polls in the page.
func Invisible(selector string) Condition {
	return inspecting("invisibility", selector, func(e ElementState) bool { return !e.Present || !e.Visible },
		polling(invisibleJS, selector))
}

// TextContains holds once the first match's rendered text contains text.
func TextContains(selector, text string) Condition {
	return inspecting(fmt.Sprintf("text %q", text), selector, func(e ElementState) bool {
		return e.Present && strings.Contains(e.Text, text)
	}, polling(textContainsJS, selector, text))
}
