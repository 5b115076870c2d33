// Package replay re-runs attendance extraction over a saved page, so a changed
// portal layout can be investigated without starting a browser.
package replay

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sreeshanth-soma/erpScraper/internal/scraper"
)

// Fragment is the outcome for one subject fragment found in the page.
type Fragment struct {
	ID   string
	Fact scraper.Fact
	// Err is set when the fragment did not parse; the fragment was skipped.
	Err error
}

// Result is a replayed extraction.
type Result struct {
	Fragments []Fragment
	Aggregate scraper.Aggregate
}

// ErrNoFragments means the selector matched nothing in the page.
var ErrNoFragments = errors.New("no subject fragments matched the selector")

// File replays the page stored at path.
func File(path, selector string, logger *zap.Logger) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening page dump: %w", err)
	}
	defer f.Close()
	return Reader(f, selector, logger)
}

// Reader replays a page read from r. Fragments are selected with selector and
// parsed exactly as a live run parses them.
func Reader(r io.Reader, selector string, logger *zap.Logger) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("parsing page dump: %w", err)
	}

	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return Result{}, fmt.Errorf("%w: %q", ErrNoFragments, selector)
	}

	var res Result
	var outerErr error
	sel.EachWithBreak(func(i int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		markup, err := goquery.OuterHtml(s)
		if err != nil {
			outerErr = fmt.Errorf("rendering fragment %d: %w", i, err)
			return false
		}

		frag := Fragment{ID: id}
		frag.Fact, frag.Err = scraper.ParseFragment(markup)
		if frag.Err != nil {
			logger.Warn("Fragment skipped.", zap.Int("index", i), zap.String("fragment_id", id), zap.Error(frag.Err))
			res.Aggregate.Skip()
		} else {
			res.Aggregate.Add(frag.Fact)
		}
		res.Fragments = append(res.Fragments, frag)
		return true
	})
	if outerErr != nil {
		return Result{}, outerErr
	}
	return res, nil
}
