// internal/scraper/workflow.go
package scraper

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sreeshanth-soma/erpScraper/internal/browser"
	"github.com/sreeshanth-soma/erpScraper/internal/config"
)

// FailureHook is called once when a step fails, before the error is returned.
// The runner wires it to the diagnostic dump.
type FailureHook func(ctx context.Context, page browser.Page)

// Workflow drives one open page through the portal. It holds no state beyond
// the values it was built with, so each run builds its own.
type Workflow struct {
	page        browser.Page
	waiter      *browser.Waiter
	selectors   config.Selectors
	loginURL    string
	bulkTimeout time.Duration
	onFailure   FailureHook
	logger      *zap.Logger
}

// NewWorkflow binds the steps to one session.
func NewWorkflow(page browser.Page, waiter *browser.Waiter, selectors config.Selectors, portal config.PortalConfig, onFailure FailureHook, logger *zap.Logger) *Workflow {
	if onFailure == nil {
		onFailure = func(context.Context, browser.Page) {}
	}
	bulk := portal.BulkWaitTimeout
	if bulk <= 0 {
		bulk = browser.DefaultBulkTimeout
	}
	loginURL := portal.LoginURL
	if loginURL == "" {
		loginURL = config.DefaultLoginURL
	}
	return &Workflow{
		page:        page,
		waiter:      waiter,
		selectors:   selectors,
		loginURL:    loginURL,
		bulkTimeout: bulk,
		onFailure:   onFailure,
		logger:      logger,
	}
}

// stepFailure classifies err, runs the failure hook and returns the tagged error.
// timeoutKind applies when a bounded wait elapsed, otherKind for everything else.
func (w *Workflow) stepFailure(ctx context.Context, timeoutKind, otherKind Kind, step, selector string, err error) error {
	e := &Error{Kind: otherKind, Step: step, Selector: selector, Err: err}

	var te *browser.TimeoutError
	switch {
	case errors.Is(err, config.ErrConfiguration):
		e.Kind = KindConfiguration
	case errors.As(err, &te):
		e.Kind = timeoutKind
		e.Bound = te.Bound
	}

	w.logger.Error("Step failed.",
		zap.Stringer("kind", e.Kind),
		zap.String("step", step),
		zap.String("selector", selector),
		zap.Error(err),
	)
	w.onFailure(ctx, w.page)
	return e
}

// action is one gated interaction: wait for cond on the element, then act on it.
type action struct {
	step string
	key  string
	cond func(selector string) browser.Condition
	do   func(ctx context.Context, selector string) error
}

func (w *Workflow) runActions(ctx context.Context, timeoutKind, otherKind Kind, actions []action) error {
	for _, a := range actions {
		sel, err := w.selectors.Get(a.key)
		if err != nil {
			return w.stepFailure(ctx, timeoutKind, otherKind, a.step, "", err)
		}
		w.logger.Debug("Waiting.", zap.String("step", a.step), zap.String("selector", sel))
		if err := w.waiter.Until(ctx, a.cond(sel)); err != nil {
			return w.stepFailure(ctx, timeoutKind, otherKind, a.step, sel, err)
		}
		if a.do == nil {
			continue
		}
		if err := a.do(ctx, sel); err != nil {
			return w.stepFailure(ctx, timeoutKind, otherKind, a.step, sel, err)
		}
	}
	return nil
}

var plainID = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// idSelector addresses an element by id, falling back to an attribute
// selector for ids that are not valid CSS identifiers.
func idSelector(id string) string {
	if plainID.MatchString(id) {
		return "#" + id
	}
	return `[id="` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(id) + `"]`
}
