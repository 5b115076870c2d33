package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sreeshanth-soma/erpScraper/internal/attendance"
	"github.com/sreeshanth-soma/erpScraper/internal/browser"
	"github.com/sreeshanth-soma/erpScraper/internal/browser/browsertest"
	"github.com/sreeshanth-soma/erpScraper/internal/config"
	"github.com/sreeshanth-soma/erpScraper/internal/diag"
)

const (
	testBound = 40 * time.Millisecond
	testTick  = 2 * time.Millisecond
)

// Selectors used by the simulated portal.
var testSelectors = map[string]string{
	config.SelUsernameInput:         "#username",
	config.SelPasswordInput:         "#password",
	config.SelLoginButton:           "#login",
	config.SelDashboardLoaded:       ".dashboard",
	config.SelModulesDropdown:       ".modules-toggle",
	config.SelAttendanceLink:        "a.attendance",
	config.SelGroupSummary:          ".group-summary",
	config.SelSubjectAttendanceInfo: ".subject-info",
}

func fragmentMarkup(id string, attended, total int) string {
	pct := 0.0
	if total > 0 {
		pct = float64(attended) / float64(total) * 100
	}
	return fmt.Sprintf(`<div id="%s" class="subject-info">Present session <b>%d out of %d | Percentage <b>%.2f%%</b></b></div>`,
		id, attended, total, pct)
}

// portal builds a fake page that behaves like the attendance portal: each
// click reveals the next surface.
type portal struct {
	*browsertest.Page
}

func newPortal() *portal {
	p := &portal{Page: browsertest.New()}
	p.Document = "<html><body>portal</body></html>"
	p.OnNavigate = func(page *browsertest.Page, _ string) {
		page.Set("#username", browsertest.Shown("username", ""))
		page.Set("#password", browsertest.Shown("password", ""))
		page.Set("#login", browsertest.Shown("login", "Login"))
	}
	p.OnClick = func(page *browsertest.Page, sel string) {
		switch sel {
		case "#login":
			page.Set(".dashboard", browsertest.Shown("dashboard", "Welcome"))
			page.Set(".modules-toggle", browsertest.Shown("", ""))
		case ".modules-toggle":
			page.Set("a.attendance", browsertest.Shown("", "Academic Planning"))
		case "a.attendance":
			page.Set(".group-card button.btn", browsertest.Shown("", "View Subjects"))
			page.Set(".group-summary", browsertest.Shown("", "Overall 85.71%"))
		case ".group-card button.btn":
			page.Set("#group-subjects-modal", browsertest.Shown("group-subjects-modal", ""))
			page.Set("#group-subject-list", browsertest.Shown("group-subject-list", ""))
		}
	}
	return p
}

// withFragments installs subject fragments keyed by id.
func (p *portal) withFragments(frags map[string]string, order ...string) *portal {
	states := make([]browser.ElementState, 0, len(order))
	for _, id := range order {
		states = append(states, browsertest.Shown(id, "Present session "))
		p.SetHTML("#"+id, frags[id])
		p.Set("#"+id, browsertest.Shown(id, "Present session "))
	}
	p.Set(".subject-info", states...)
	return p
}

// disable stops sel from ever appearing.
func (p *portal) disable(sel string) *portal {
	prev := p.OnClick
	prevNav := p.OnNavigate
	p.OnNavigate = func(page *browsertest.Page, url string) {
		prevNav(page, url)
		page.Remove(sel)
	}
	p.OnClick = func(page *browsertest.Page, s string) {
		prev(page, s)
		page.Remove(sel)
	}
	return p
}

type fakeOpener struct {
	mu    sync.Mutex
	page  *portal
	err   error
	opens int
	// gate, when set, blocks Open until closed.
	gate chan struct{}
}

func (o *fakeOpener) Open(ctx context.Context) (browser.PageCloser, *browser.Waiter, error) {
	o.mu.Lock()
	o.opens++
	gate := o.gate
	o.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if o.err != nil {
		return nil, nil, o.err
	}
	return o.page, browser.NewWaiter(o.page, testBound, testTick), nil
}

func (o *fakeOpener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

type memRecorder struct {
	mu      sync.Mutex
	records map[string]attendance.Record
	saves   int
	err     error
	panics  bool
}

func newMemRecorder() *memRecorder {
	return &memRecorder{records: make(map[string]attendance.Record)}
}

func (m *memRecorder) SaveDaily(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	if m.panics {
		panic("driver exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return attendance.Record{}, m.err
	}
	m.saves++
	m.records[rec.Owner+"/"+rec.Date()] = rec
	return rec, nil
}

type harness struct {
	runner   *Runner
	opener   *fakeOpener
	recorder *memRecorder
	logs     *observer.ObservedLogs
	dumpPath string
}

func newHarness(t *testing.T, page *portal, selectors map[string]string) *harness {
	t.Helper()
	dir := t.TempDir()

	raw, err := json.Marshal(selectors)
	require.NoError(t, err)
	selPath := filepath.Join(dir, "selectors.json")
	require.NoError(t, os.WriteFile(selPath, raw, 0o600))

	cfg := config.NewDefaultConfig()
	cfg.Portal.SelectorsFile = selPath
	cfg.Portal.DebugHTMLFile = filepath.Join(dir, "debug.html")
	cfg.Portal.WaitTimeout = testBound
	cfg.Portal.BulkWaitTimeout = 2 * testBound
	cfg.Portal.PollInterval = testTick
	cfg.Profile.Owner = "student-1"
	cfg.Profile.Timezone = "UTC"

	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	opener := &fakeOpener{page: page}
	recorder := newMemRecorder()
	r, err := NewRunner(cfg, opener, recorder, diag.NewDumper(cfg.Portal.DebugHTMLFile, logger), logger)
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }

	return &harness{runner: r, opener: opener, recorder: recorder, logs: logs, dumpPath: cfg.Portal.DebugHTMLFile}
}

func (h *harness) dumps() int {
	return h.logs.FilterMessage("Diagnostic dump written.").Len()
}

func (h *harness) dumpExists() bool {
	_, err := os.Stat(h.dumpPath)
	return !errors.Is(err, os.ErrNotExist)
}

func copySelectors(without ...string) map[string]string {
	out := make(map[string]string, len(testSelectors))
	for k, v := range testSelectors {
		out[k] = v
	}
	for _, k := range without {
		delete(out, k)
	}
	return out
}
