// internal/scraper/navigate.go
package scraper

import (
	"context"

	"github.com/sreeshanth-soma/erpScraper/internal/browser"
	"github.com/sreeshanth-soma/erpScraper/internal/config"
)

// Navigate walks from the dashboard to the subject attendance panel. Each
// surface only exists once the previous one has rendered, so every action is
// gated on its own wait.
func (w *Workflow) Navigate(ctx context.Context) error {
	err := w.runActions(ctx, KindNavigationTimeout, KindNavigation, []action{
		{step: "open the modules menu", key: config.SelModulesDropdown, cond: browser.Clickable, do: w.page.Click},
		{step: "open the attendance report", key: config.SelAttendanceLink, cond: browser.Clickable, do: w.page.Click},
		{step: "view subjects of the first group", key: config.SelViewSubjectsButton, cond: browser.Clickable, do: w.page.Click},
		{step: "wait for the subject panel", key: config.SelSubjectsModal, cond: browser.Visible},
		{step: "wait for the subject list", key: config.SelSubjectList, cond: browser.Visible},
	})
	if err != nil {
		return err
	}
	w.logger.Info("Reached the subject attendance panel.")
	return nil
}
