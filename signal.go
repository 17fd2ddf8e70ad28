package namedsem

import (
	"os"
	"os/signal"
	"sort"
	"sync"
)

// HandleSignals arranges for every name this coordinator created to be
// unlinked when the process receives SIGINT, SIGTERM or SIGHUP. After
// unlinking, onSignal is called with the signal; it typically exits the
// process. The returned stop function removes the handler and is safe to call
// more than once.
//
// Only the first signal is handled. Open handles are not closed.
func (c *Coordinator) HandleSignals(onSignal func(os.Signal)) (stop func()) {
	ch := make(chan os.Signal, 1)
	setSignalsForChannel(ch)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-ch:
			signal.Stop(ch)
			c.logger.Printf("namedsem: received %v, unlinking created semaphores", sig)
			if err := c.UnlinkCreated(); err != nil {
				c.logger.Printf("namedsem: %v", err)
			}
			if onSignal != nil {
				onSignal(sig)
			}
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

// UnlinkCreated unlinks every name this coordinator created and has not yet
// unlinked. Names already removed by someone else are skipped. The first
// failure is returned after all names have been tried.
func (c *Coordinator) UnlinkCreated() error {
	names := c.created.ToSlice()
	sort.Strings(names)

	var firstErr error
	for _, n := range names {
		if _, err := c.unlinkIfPresent(Name{value: n}); err != nil {
			c.logger.Printf("namedsem: unlink %s: %v", n, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
