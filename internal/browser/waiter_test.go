// internal/browser/waiter_test.go
package browser_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sreeshanth-soma/erpScraper/internal/browser"
	"github.com/sreeshanth-soma/erpScraper/internal/browser/browsertest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	shortBound = 60 * time.Millisecond
	tick       = 5 * time.Millisecond
)

func TestWaiter_ConditionsAlreadyMet(t *testing.T) {
	page := browsertest.New()
	page.Set("#user", browsertest.Shown("user", ""))
	page.Set("#summary", browsertest.Shown("summary", "Overall 82.5%"))
	page.Set("#gone", browsertest.Hidden("gone"))

	w := browser.NewWaiter(page, shortBound, tick)
	ctx := context.Background()

	assert.NoError(t, w.Until(ctx, browser.Present("#user")))
	assert.NoError(t, w.Until(ctx, browser.Visible("#user")))
	assert.NoError(t, w.Until(ctx, browser.Clickable("#user")))
	assert.NoError(t, w.Until(ctx, browser.TextContains("#summary", "%")))
	assert.NoError(t, w.Until(ctx, browser.Invisible("#gone")))
	assert.NoError(t, w.Until(ctx, browser.Invisible("#never-attached")), "absent elements count as invisible")
}

func TestWaiter_BecomesTrueWhilePolling(t *testing.T) {
	page := browsertest.New()
	w := browser.NewWaiter(page, time.Second, tick)

	var polls atomic.Int32
	cond := browser.Condition{
		Name: "third poll",
		Check: func(ctx context.Context, p browser.Page) (bool, error) {
			return polls.Add(1) >= 3, nil
		},
	}
	require.NoError(t, w.Until(context.Background(), cond))
	assert.Equal(t, int32(3), polls.Load())
}

func TestWaiter_Timeout(t *testing.T) {
	page := browsertest.New()
	page.Set("#login", browser.ElementState{Present: true, Visible: true, Enabled: false})
	w := browser.NewWaiter(page, shortBound, tick)

	start := time.Now()
	err := w.Until(context.Background(), browser.Clickable("#login"))
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), shortBound)

	var te *browser.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, shortBound, te.Bound)
	assert.Contains(t, te.Condition, `"#login"`)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaiter_TimeoutReportsLastProbeError(t *testing.T) {
	w := browser.NewWaiter(browsertest.New(), shortBound, tick)
	probeErr := errors.New("execution context was destroyed")
	err := w.Until(context.Background(), browser.Condition{
		Name:  "flaky",
		Check: func(context.Context, browser.Page) (bool, error) { return false, probeErr },
	})

	var te *browser.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, probeErr, te.LastErr)
	assert.Contains(t, err.Error(), "execution context was destroyed")
}

func TestWaiter_ParentCancellationIsNotATimeout(t *testing.T) {
	w := browser.NewWaiter(browsertest.New(), time.Second, tick)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Until(ctx, browser.Present("#anything"))
	require.Error(t, err)
	var te *browser.TimeoutError
	assert.False(t, errors.As(err, &te))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaiter_WithTimeout(t *testing.T) {
	w := browser.NewWaiter(browsertest.New(), 0, 0)
	assert.Equal(t, browser.DefaultWaitTimeout, w.Timeout())

	bulk := w.WithTimeout(browser.DefaultBulkTimeout)
	assert.Equal(t, browser.DefaultBulkTimeout, bulk.Timeout())
	assert.Equal(t, browser.DefaultWaitTimeout, w.Timeout(), "original waiter is unchanged")
}

func TestWaiter_AllVisible(t *testing.T) {
	t.Run("returns every match", func(t *testing.T) {
		page := browsertest.New()
		page.Set(".subject", browsertest.Shown("s1", ""), browsertest.Shown("s2", ""))
		got, err := browser.NewWaiter(page, shortBound, tick).AllVisible(context.Background(), ".subject")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "s1", got[0].ID)
		assert.Equal(t, "s2", got[1].ID)
	})

	t.Run("one hidden match blocks", func(t *testing.T) {
		page := browsertest.New()
		page.Set(".subject", browsertest.Shown("s1", ""), browsertest.Hidden("s2"))
		_, err := browser.NewWaiter(page, shortBound, tick).AllVisible(context.Background(), ".subject")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("no matches times out", func(t *testing.T) {
		_, err := browser.NewWaiter(browsertest.New(), shortBound, tick).AllVisible(context.Background(), ".subject")
		var te *browser.TimeoutError
		assert.True(t, errors.As(err, &te))
	})
}

// tabPage is a scripted page that also accepts chromedp actions, standing in
// for a live Session.
type tabPage struct {
	*browsertest.Page
	calls atomic.Int32
	run   func(ctx context.Context, call int32, actions []chromedp.Action) error
}

func (p *tabPage) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	return p.run(ctx, p.calls.Add(1), actions)
}

func TestWaiter_LiveTabUsesChromedpWaits(t *testing.T) {
	tests := []struct {
		name      string
		cond      browser.Condition
		wantTasks int
	}{
		{"presence", browser.Present("#user"), 1},
		{"visibility", browser.Visible("#user"), 1},
		{"clickability", browser.Clickable("#login"), 2},
		{"invisibility", browser.Invisible(".preloader"), 1},
		{"text", browser.TextContains("#summary", "%"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []chromedp.Action
			page := &tabPage{Page: browsertest.New(), run: func(_ context.Context, _ int32, actions []chromedp.Action) error {
				got = actions
				return nil
			}}
			// The scripted page has no elements, so only the chromedp path can succeed.
			require.NoError(t, browser.NewWaiter(page, shortBound, tick).Until(context.Background(), tt.cond))
			assert.Equal(t, int32(1), page.calls.Load())
			require.Len(t, got, 1)
			tasks, ok := got[0].(chromedp.Tasks)
			require.True(t, ok)
			assert.Len(t, tasks, tt.wantTasks)
		})
	}
}

func TestWaiter_LiveTabTimeout(t *testing.T) {
	page := &tabPage{Page: browsertest.New(), run: func(ctx context.Context, _ int32, _ []chromedp.Action) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	err := browser.NewWaiter(page, shortBound, tick).Until(context.Background(), browser.Visible("#dashboard"))
	var te *browser.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, shortBound, te.Bound)
	assert.Nil(t, te.LastErr, "the deadline itself is not a probe failure")
}

func TestWaiter_LiveTabRetriesAfterNavigation(t *testing.T) {
	destroyed := errors.New("execution context was destroyed")
	page := &tabPage{Page: browsertest.New(), run: func(_ context.Context, call int32, _ []chromedp.Action) error {
		if call < 3 {
			return destroyed
		}
		return nil
	}}
	require.NoError(t, browser.NewWaiter(page, time.Second, tick).Until(context.Background(), browser.TextContains("#summary", "%")))
	assert.Equal(t, int32(3), page.calls.Load())

	failing := &tabPage{Page: browsertest.New(), run: func(context.Context, int32, []chromedp.Action) error { return destroyed }}
	err := browser.NewWaiter(failing, shortBound, tick).Until(context.Background(), browser.Present("#user"))
	var te *browser.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, destroyed, te.LastErr)
}

func TestWaiter_LiveTabCancellation(t *testing.T) {
	page := &tabPage{Page: browsertest.New(), run: func(ctx context.Context, _ int32, _ []chromedp.Action) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := browser.NewWaiter(page, time.Second, tick).Until(ctx, browser.Visible("#dashboard"))
	var te *browser.TimeoutError
	assert.False(t, errors.As(err, &te))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaiter_LiveTabAllVisibleSnapshotsAfterWait(t *testing.T) {
	page := &tabPage{Page: browsertest.New()}
	page.run = func(context.Context, int32, []chromedp.Action) error {
		page.Set(".subject", browsertest.Shown("s1", ""), browsertest.Shown("s2", ""))
		return nil
	}

	got, err := browser.NewWaiter(page, shortBound, tick).AllVisible(context.Background(), ".subject")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s2", got[1].ID)
}

func TestWaiter_CustomConditionPollsOnLiveTab(t *testing.T) {
	page := &tabPage{Page: browsertest.New(), run: func(context.Context, int32, []chromedp.Action) error {
		return errors.New("not expected")
	}}
	cond := browser.Condition{
		Name:  "always",
		Check: func(context.Context, browser.Page) (bool, error) { return true, nil },
	}
	require.NoError(t, browser.NewWaiter(page, shortBound, tick).Until(context.Background(), cond))
	assert.Zero(t, page.calls.Load())
}
