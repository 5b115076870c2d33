// Package diag writes the page markup of a failed run to a fixed file for
// offline debugging.
package diag

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/sreeshanth-soma/erpScraper/internal/browser"
)

// osWriteFile is swapped in tests.
var osWriteFile = os.WriteFile

const captureTimeout = 10 * time.Second

// SourceReader is the part of a browser page a dump needs.
type SourceReader interface {
	Source(ctx context.Context) (string, error)
}

// Dumper overwrites one file with the most recent failure's markup.
// Every method is best-effort: errors are logged, never returned.
type Dumper struct {
	path   string
	logger *zap.Logger
}

func NewDumper(path string, logger *zap.Logger) *Dumper {
	return &Dumper{path: path, logger: logger.Named("diag")}
}

// Path is the dump destination.
func (d *Dumper) Path() string { return d.path }

// Dump writes markup to the dump file, replacing what was there.
func (d *Dumper) Dump(markup string) {
	if err := osWriteFile(d.path, []byte(markup), 0o644); err != nil {
		d.logger.Error("Failed to write diagnostic dump.", zap.String("path", d.path), zap.Error(err))
		return
	}
	d.logger.Info("Diagnostic dump written.", zap.String("path", d.path), zap.Int("bytes", len(markup)))
}

// Capture reads the current document from page and dumps it. If the source
// cannot be read nothing is written, so an older dump is left intact.
func (d *Dumper) Capture(ctx context.Context, page SourceReader) {
	if page == nil {
		d.logger.Warn("No page to capture for diagnostics.")
		return
	}
	// The run context may already be past its deadline; the page is still open.
	captureCtx, cancel := context.WithTimeout(browser.Detach(ctx), captureTimeout)
	defer cancel()
	markup, err := page.Source(captureCtx)
	if err != nil {
		d.logger.Error("Failed to read page source for diagnostic dump.", zap.Error(err))
		return
	}
	d.Dump(markup)
}
