// internal/scraper/runner.go
package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sreeshanth-soma/erpScraper/internal/attendance"
	"github.com/sreeshanth-soma/erpScraper/internal/browser"
	"github.com/sreeshanth-soma/erpScraper/internal/config"
	"github.com/sreeshanth-soma/erpScraper/internal/diag"
)

// Opener starts a browser session. browser.Manager implements it.
type Opener interface {
	Open(ctx context.Context) (browser.PageCloser, *browser.Waiter, error)
}

// Recorder persists the day's record, replacing any earlier one for the same
// owner and date.
type Recorder interface {
	SaveDaily(ctx context.Context, rec attendance.Record) (attendance.Record, error)
}

// Runner executes complete scrape runs, one at a time.
type Runner struct {
	opener   Opener
	recorder Recorder
	dumper   *diag.Dumper
	logger   *zap.Logger

	portal   config.PortalConfig
	owner    string
	location *time.Location

	loadSelectors func(path string) (config.Selectors, error)
	now           func() time.Time

	running sync.Mutex
}

// NewRunner wires a runner from application configuration.
func NewRunner(cfg *config.Config, opener Opener, recorder Recorder, dumper *diag.Dumper, logger *zap.Logger) (*Runner, error) {
	loc, err := cfg.Profile.Location()
	if err != nil {
		return nil, err
	}
	return &Runner{
		opener:        opener,
		recorder:      recorder,
		dumper:        dumper,
		logger:        logger.Named("scraper"),
		portal:        cfg.Portal,
		owner:         cfg.Profile.Owner,
		location:      loc,
		loadSelectors: config.LoadSelectors,
		now:           time.Now,
	}, nil
}

// Run performs one full scrape with creds and returns the stored record.
// The browser session, once opened, is closed exactly once on every path.
// A failed run leaves exactly one diagnostic dump when a page was open.
func (r *Runner) Run(ctx context.Context, creds config.Credentials) (rec attendance.Record, err error) {
	if !r.running.TryLock() {
		return attendance.Record{}, ErrRunInProgress
	}
	defer r.running.Unlock()

	runID := uuid.NewString()
	logger := r.logger.With(zap.String("run_id", runID))
	started := r.now()
	logger.Info("Scrape run started.", zap.String("owner", r.owner))
	defer func() {
		if err != nil {
			logger.Error("Scrape run failed.", zap.Error(err), zap.Duration("elapsed", r.now().Sub(started)))
			return
		}
		logger.Info("Scrape run finished.", zap.Duration("elapsed", r.now().Sub(started)))
	}()

	// Inputs are checked before a browser is started.
	if err := creds.Validate(); err != nil {
		return attendance.Record{}, &Error{Kind: KindConfiguration, Step: "load credentials", Err: err}
	}
	selectors, err := r.loadSelectors(r.portal.SelectorsFile)
	if err != nil {
		return attendance.Record{}, &Error{Kind: KindConfiguration, Step: "load selectors", Err: err}
	}
	if err := selectors.Require(config.RequiredSelectors...); err != nil {
		return attendance.Record{}, &Error{Kind: KindConfiguration, Step: "load selectors", Err: err}
	}

	page, waiter, err := r.opener.Open(ctx)
	if err != nil {
		return attendance.Record{}, &Error{Kind: KindBrowser, Step: "start the browser", Err: err}
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			logger.Warn("Error while closing the browser session.", zap.Error(cerr))
		}
	}()

	dumped := false
	dump := func(ctx context.Context, p browser.Page) {
		if dumped {
			return
		}
		dumped = true
		r.dumper.Capture(ctx, p)
	}

	stage := KindAuthentication
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Recovered from panic during scrape run.", zap.Any("panic", p), zap.Stack("stack"))
			dump(ctx, page)
			rec, err = attendance.Record{}, &Error{Kind: stage, Step: "run the workflow", Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	wf := NewWorkflow(page, waiter, selectors, r.portal, dump, logger)

	if err := wf.Authenticate(ctx, creds); err != nil {
		return attendance.Record{}, err
	}
	stage = KindNavigation
	if err := wf.Navigate(ctx); err != nil {
		return attendance.Record{}, err
	}
	stage = KindExtraction
	agg, err := wf.Extract(ctx)
	if err != nil {
		return attendance.Record{}, err
	}

	stage = KindPersistence
	now := r.now()
	rec = attendance.Record{
		Owner:           r.owner,
		CalendarDate:    attendance.DateOf(now, r.location),
		TotalClasses:    agg.Total,
		ClassesAttended: agg.Attended,
		Percentage:      agg.Percentage(),
		RecordedAt:      now.UTC(),
	}
	saved, err := r.recorder.SaveDaily(ctx, rec)
	if err != nil {
		dump(ctx, page)
		return attendance.Record{}, &Error{Kind: KindPersistence, Step: "save the attendance record", Err: err}
	}
	logger.Info("Attendance record saved.",
		zap.String("date", saved.Date()),
		zap.Int("attended", saved.ClassesAttended),
		zap.Int("total", saved.TotalClasses),
		zap.Stringer("percentage", saved.Percentage),
	)
	return saved, nil
}
