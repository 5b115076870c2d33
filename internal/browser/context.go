// internal/browser/context.go
package browser

import (
	"context"
	"time"
)

// CombineContext returns a context that carries ctx1's values (the chromedp
// target lives there) and is canceled when either ctx1 or ctx2 is done.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)
	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()
	return combinedCtx, cancel
}

type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach keeps ctx's values but drops its deadline and cancellation, so
// cleanup can still talk to the browser after the run context is gone.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
