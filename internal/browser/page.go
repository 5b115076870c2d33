// internal/browser/page.go
package browser

import "context"

// ElementState is a point-in-time snapshot of one element matched by a CSS selector.
type ElementState struct {
	Present bool   `json:"present"`
	Visible bool   `json:"visible"`
	Enabled bool   `json:"enabled"`
	ID      string `json:"id"`
	Text    string `json:"text"`
}

// Clickable mirrors what a user can actually activate: rendered and not disabled.
func (e ElementState) Clickable() bool { return e.Present && e.Visible && e.Enabled }

// Page is the surface the scraping steps drive. Inspect methods never block on
// the element appearing; blocking is the Waiter's job.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// Inspect describes the first element matching selector. A missing element
	// yields a zero ElementState and no error.
	Inspect(ctx context.Context, selector string) (ElementState, error)
	InspectAll(ctx context.Context, selector string) ([]ElementState, error)
	SendKeys(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	OuterHTML(ctx context.Context, selector string) (string, error)
	// Source returns the markup of the whole document.
	Source(ctx context.Context) (string, error)
}

// PageCloser is a Page that owns its browser process.
type PageCloser interface {
	Page
	Close() error
}
