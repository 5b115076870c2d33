// internal/scraper/parse.go
package scraper

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrPatternNotFound means the fragment did not contain an attendance line,
// which the portal does for placeholder fragments.
var ErrPatternNotFound = errors.New("attendance pattern not found")

// ErrImpossibleCounts means a fragment claims more attended classes than were held.
var ErrImpossibleCounts = errors.New("attended exceeds total")

// The portal renders each subject as
//
//	Present session <b>10 out of 15 | Percentage <b>66.67%</b></b>
var fragmentPattern = regexp.MustCompile(`Present session <b>(\d+) out of (\d+) \| Percentage <b>([\d.]+)%</b></b>`)

// Fact is the attendance of one subject.
type Fact struct {
	Attended int
	Total    int
	// Percentage is the figure the portal printed; informational only.
	Percentage string
}

// ParseFragment extracts a Fact from one fragment's markup.
func ParseFragment(markup string) (Fact, error) {
	m := fragmentPattern.FindStringSubmatch(markup)
	if m == nil {
		return Fact{}, ErrPatternNotFound
	}
	attended, err := strconv.Atoi(m[1])
	if err != nil {
		return Fact{}, fmt.Errorf("could not parse attended count %q: %w", m[1], err)
	}
	total, err := strconv.Atoi(m[2])
	if err != nil {
		return Fact{}, fmt.Errorf("could not parse total count %q: %w", m[2], err)
	}
	if attended > total {
		return Fact{}, fmt.Errorf("%d out of %d: %w", attended, total, ErrImpossibleCounts)
	}
	return Fact{Attended: attended, Total: total, Percentage: m[3]}, nil
}
