// internal/scraper/errors.go
package scraper

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrRunInProgress is returned by Runner.Run while another run holds the runner.
var ErrRunInProgress = errors.New("a scrape run is already in progress")

// Kind classifies why a run stopped.
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindBrowser
	KindAuthenticationTimeout
	KindAuthentication
	KindNavigationTimeout
	KindNavigation
	KindExtraction
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindBrowser:
		return "browser error"
	case KindAuthenticationTimeout:
		return "authentication timeout"
	case KindAuthentication:
		return "authentication error"
	case KindNavigationTimeout:
		return "navigation timeout"
	case KindNavigation:
		return "navigation error"
	case KindExtraction:
		return "extraction error"
	case KindPersistence:
		return "persistence error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Timeout reports whether k is one of the timeout variants.
func (k Kind) Timeout() bool {
	return k == KindAuthenticationTimeout || k == KindNavigationTimeout
}

// Error is a run failure with enough context to find the broken page element.
type Error struct {
	Kind Kind
	// Step is a short description of what the workflow was doing.
	Step     string
	Selector string
	// Bound is the wait bound that elapsed, for timeouts.
	Bound time.Duration
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Step != "" {
		fmt.Fprintf(&b, " while trying to %s", e.Step)
	}
	if e.Selector != "" {
		fmt.Fprintf(&b, " (selector %q)", e.Selector)
	}
	if e.Bound > 0 {
		fmt.Fprintf(&b, " after %s", e.Bound)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is, or wraps, an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
