package namedsem

import (
	"context"
	"log"
	"runtime"
	"sync"
)

// releaser is the half of a Semaphore a Guard needs.
type releaser interface {
	Release() error
}

// obligation is the single pending Release owned by a Guard. It is kept apart
// from the Guard so the runtime cleanup and the context watcher can hold it
// without keeping the Guard reachable.
type obligation struct {
	once   sync.Once
	sem    releaser
	name   string
	logger *log.Logger
	stop   chan struct{}
	err    error
}

// discharge issues the Release on the first call and reports whether this
// call was the one that did it.
func (o *obligation) discharge() (bool, error) {
	first := false
	o.once.Do(func() {
		first = true
		close(o.stop)
		o.err = o.sem.Release()
	})
	return first, o.err
}

// Guard binds one successful wait to exactly one Release. The release happens
// on whichever comes first: an explicit Release call, the context passed at
// construction being done, or the Guard becoming unreachable. Later triggers
// are no-ops.
//
// The context and unreachability triggers exist for abandoned guards. A count
// released because ctx ended may let another holder in while the owner is
// still working, so code that needs the count for the whole of a function
// should use Handle.Do, which holds it until the function returns.
//
// A Guard is not re-entrant: acquiring twice needs two guards.
//
//	g, err := h.Guard(ctx)
//	if err != nil {
//		return err
//	}
//	defer g.Release()
type Guard struct {
	ob *obligation
}

// Guard waits on h, honoring ctx, and returns a Guard owning the matching
// Release. A nil ctx is treated as context.Background.
func (h *Handle) Guard(ctx context.Context) (*Guard, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := h.AcquireContext(ctx); err != nil {
		return nil, err
	}
	return newGuard(ctx, h, h.name.value, h.logger), nil
}

// Do runs fn while holding one count of h. ctx bounds the wait and is passed
// to fn, but the count is released only when fn returns or panics: a ctx
// cancelled while fn runs does not end the critical section early.
func (h *Handle) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := h.AcquireContext(ctx); err != nil {
		return err
	}
	g := newGuard(context.Background(), h, h.name.value, h.logger)
	defer func() {
		if rerr := g.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn(ctx)
}

func newGuard(ctx context.Context, sem releaser, name string, logger *log.Logger) *Guard {
	ob := &obligation{
		sem:    sem,
		name:   name,
		logger: logger,
		stop:   make(chan struct{}),
	}
	g := &Guard{ob: ob}

	if done := ctx.Done(); done != nil {
		go func() {
			select {
			case <-done:
				if first, err := ob.discharge(); first && err != nil {
					ob.logger.Printf("namedsem: release of %s on cancellation failed: %v", ob.name, err)
				}
			case <-ob.stop:
			}
		}()
	}

	runtime.AddCleanup(g, func(ob *obligation) {
		if first, err := ob.discharge(); first {
			ob.logger.Printf("namedsem: guard for %s was dropped without Release", ob.name)
			if err != nil {
				ob.logger.Printf("namedsem: release of %s failed: %v", ob.name, err)
			}
		}
	}, ob)
	return g
}

// Release gives the count back. Only the first call has an effect; later
// calls return the first call's result.
func (g *Guard) Release() error {
	_, err := g.ob.discharge()
	return err
}

// Released reports whether the count has been given back, by any trigger.
func (g *Guard) Released() bool {
	select {
	case <-g.ob.stop:
		return true
	default:
		return false
	}
}
