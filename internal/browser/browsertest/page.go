// Package browsertest provides an in-memory browser.Page for driving the
// scraping steps without a real browser.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/sreeshanth-soma/erpScraper/internal/browser"
)

// Shown is a visible, enabled element.
func Shown(id, text string) browser.ElementState {
	return browser.ElementState{Present: true, Visible: true, Enabled: true, ID: id, Text: text}
}

// Hidden is an attached element that is not rendered.
func Hidden(id string) browser.ElementState {
	return browser.ElementState{Present: true, Enabled: true, ID: id}
}

// Page is a scriptable fake. Elements are keyed by the exact selector string
// the caller passes; there is no CSS matching.
type Page struct {
	mu       sync.Mutex
	elements map[string][]browser.ElementState
	markup   map[string]string

	// Document is returned by Source.
	Document string

	NavigateErr error
	SourceErr   error
	// OnNavigate and OnClick run after the action is recorded and may mutate
	// the page, e.g. to reveal the next UI surface.
	OnNavigate func(p *Page, url string)
	OnClick    func(p *Page, selector string)

	visits []string
	clicks []string
	typed  map[string]string
	closes int
}

var _ browser.PageCloser = (*Page)(nil)

func New() *Page {
	return &Page{
		elements: make(map[string][]browser.ElementState),
		markup:   make(map[string]string),
		typed:    make(map[string]string),
	}
}

// Set replaces the elements matching selector.
func (p *Page) Set(selector string, states ...browser.ElementState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[selector] = states
}

// Remove detaches every element matching selector.
func (p *Page) Remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, selector)
}

// SetHTML sets what OuterHTML returns for selector.
func (p *Page) SetHTML(selector, html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markup[selector] = html
}

func (p *Page) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	p.visits = append(p.visits, url)
	hook, err := p.OnNavigate, p.NavigateErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(p, url)
	}
	return nil
}

func (p *Page) Inspect(ctx context.Context, selector string) (browser.ElementState, error) {
	if err := ctx.Err(); err != nil {
		return browser.ElementState{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if els := p.elements[selector]; len(els) > 0 {
		return els[0], nil
	}
	return browser.ElementState{}, nil
}

func (p *Page) InspectAll(ctx context.Context, selector string) ([]browser.ElementState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]browser.ElementState(nil), p.elements[selector]...), nil
}

func (p *Page) SendKeys(_ context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.elements[selector]) == 0 {
		return fmt.Errorf("no element matches %q", selector)
	}
	p.typed[selector] += text
	return nil
}

func (p *Page) Click(_ context.Context, selector string) error {
	p.mu.Lock()
	if len(p.elements[selector]) == 0 {
		p.mu.Unlock()
		return fmt.Errorf("no element matches %q", selector)
	}
	p.clicks = append(p.clicks, selector)
	hook := p.OnClick
	p.mu.Unlock()
	if hook != nil {
		hook(p, selector)
	}
	return nil
}

func (p *Page) OuterHTML(_ context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	html, ok := p.markup[selector]
	if !ok {
		return "", fmt.Errorf("no markup for %q", selector)
	}
	return html, nil
}

func (p *Page) Source(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Document, p.SourceErr
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return nil
}

// Visits lists navigated URLs in order.
func (p *Page) Visits() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visits...)
}

// Clicks lists clicked selectors in order.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Typed returns everything sent to selector.
func (p *Page) Typed(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typed[selector]
}

// Closes is the number of Close calls.
func (p *Page) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}
