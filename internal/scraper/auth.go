// internal/scraper/auth.go
package scraper

import (
	"context"

	"go.uber.org/zap"

	"github.com/sreeshanth-soma/erpScraper/internal/browser"
	"github.com/sreeshanth-soma/erpScraper/internal/config"
)

// Authenticate opens the login page, submits creds and waits for the
// post-login landing indicator. Any elapsed wait is an authentication timeout.
func (w *Workflow) Authenticate(ctx context.Context, creds config.Credentials) error {
	w.logger.Info("Opening login page.", zap.String("url", w.loginURL))
	if err := w.page.Navigate(ctx, w.loginURL); err != nil {
		return w.stepFailure(ctx, KindAuthenticationTimeout, KindAuthentication, "open the login page", "", err)
	}

	w.logger.Info("Entering credentials.", zap.String("username", creds.Username))
	err := w.runActions(ctx, KindAuthenticationTimeout, KindAuthentication, []action{
		{
			step: "enter the username",
			key:  config.SelUsernameInput,
			cond: browser.Present,
			do:   func(ctx context.Context, sel string) error { return w.page.SendKeys(ctx, sel, creds.Username) },
		},
		{
			step: "enter the password",
			key:  config.SelPasswordInput,
			cond: browser.Present,
			do:   func(ctx context.Context, sel string) error { return w.page.SendKeys(ctx, sel, creds.Password) },
		},
		{
			step: "submit the login form",
			key:  config.SelLoginButton,
			cond: browser.Clickable,
			do:   w.page.Click,
		},
		{
			step: "wait for the dashboard",
			key:  config.SelDashboardLoaded,
			cond: browser.Visible,
		},
	})
	if err != nil {
		return err
	}
	w.logger.Info("Login successful.")
	return nil
}
