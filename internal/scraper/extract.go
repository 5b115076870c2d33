// internal/scraper/extract.go
package scraper

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sreeshanth-soma/erpScraper/internal/browser"
	"github.com/sreeshanth-soma/erpScraper/internal/config"
)

const (
	summaryReadyMarker = "%"
	fragmentTextMarker = "Present session "
)

// Extract waits for the attendance panel to settle and sums every subject
// fragment it can parse. Unparseable fragments and preloaders that never
// disappear are logged and tolerated; anything else fails the step.
func (w *Workflow) Extract(ctx context.Context) (Aggregate, error) {
	fail := func(step, selector string, err error) (Aggregate, error) {
		return Aggregate{}, w.stepFailure(ctx, KindExtraction, KindExtraction, step, selector, err)
	}

	summary, err := w.selectors.Get(config.SelGroupSummary)
	if err != nil {
		return fail("read the attendance summary", "", err)
	}
	fragments, err := w.selectors.Get(config.SelSubjectAttendanceInfo)
	if err != nil {
		return fail("collect subject fragments", "", err)
	}
	preloader, err := w.selectors.Get(config.SelFragmentPreloader)
	if err != nil {
		return fail("collect subject fragments", "", err)
	}

	w.logger.Info("Waiting for the attendance summary.")
	if err := w.waiter.Until(ctx, browser.TextContains(summary, summaryReadyMarker)); err != nil {
		return fail("wait for the attendance summary", summary, err)
	}

	elems, err := w.waiter.WithTimeout(w.bulkTimeout).AllVisible(ctx, fragments)
	if err != nil {
		return fail("collect subject fragments", fragments, err)
	}
	w.logger.Info("Subject fragments found.", zap.Int("count", len(elems)))

	var agg Aggregate
	for _, el := range elems {
		if el.ID == "" {
			w.logger.Warn("Subject fragment has no id; skipping.", zap.String("text", el.Text))
			agg.Skip()
			continue
		}
		sel := idSelector(el.ID)
		log := w.logger.With(zap.String("fragment", el.ID))

		if err := w.waiter.Until(ctx, browser.Invisible(sel+" "+preloader)); err != nil {
			if ctx.Err() != nil {
				return fail("wait for a fragment preloader", sel, err)
			}
			log.Warn("Preloader still visible; proceeding anyway.", zap.Error(err))
		}

		if err := w.waiter.Until(ctx, browser.TextContains(sel, fragmentTextMarker)); err != nil {
			return fail("wait for fragment text", sel, err)
		}

		markup, err := w.page.OuterHTML(ctx, sel)
		if err != nil {
			return fail("read fragment markup", sel, err)
		}

		fact, err := ParseFragment(markup)
		if err != nil {
			if errors.Is(err, ErrPatternNotFound) {
				log.Warn("Attendance pattern not found in fragment.", zap.String("markup", markup))
			} else {
				log.Warn("Could not parse attendance numbers.", zap.String("markup", markup), zap.Error(err))
			}
			agg.Skip()
			continue
		}
		log.Debug("Parsed fragment.",
			zap.Int("attended", fact.Attended),
			zap.Int("total", fact.Total),
			zap.String("percentage", fact.Percentage),
		)
		agg.Add(fact)
	}

	w.logger.Info("Extraction complete.",
		zap.Int("attended", agg.Attended),
		zap.Int("total", agg.Total),
		zap.Stringer("percentage", agg.Percentage()),
		zap.Int("skipped", agg.Skipped),
	)
	return agg, nil
}
