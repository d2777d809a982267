package background

import (
	"context"
	"sync"
)

// Group runs work that must outlive the request that started it, and lets
// the process wait for that work on shutdown.
type Group struct {
	wg sync.WaitGroup
}

// Go runs fn in a new goroutine with a context detached from ctx's
// cancellation. Values carried by ctx (request id, loggers) are kept.
func (g *Group) Go(ctx context.Context, fn func(ctx context.Context)) {
	detached := context.WithoutCancel(ctx)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn(detached)
	}()
}

// Wait blocks until every goroutine started with Go has returned, or ctx
// is done, whichever comes first.
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
