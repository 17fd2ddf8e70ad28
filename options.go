package namedsem

import (
	"log"
	"os"
	"time"
)

const (
	// DefaultPermissions is the mode new semaphores are created with.
	DefaultPermissions os.FileMode = 0600

	// DefaultPollInterval bounds each timed wait AcquireContext issues
	// between checks of its context.
	DefaultPollInterval = 20 * time.Millisecond

	// DefaultInitialValue is the conventional starting count for a
	// semaphore used as a cross-process mutex.
	DefaultInitialValue = 1
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger for events that cannot be returned to a caller,
// such as a failed deferred close. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPermissions sets the mode bits used when creating semaphores. Only the
// permission bits of perm are used.
func WithPermissions(perm os.FileMode) Option {
	return func(c *Coordinator) {
		c.perm = perm.Perm()
	}
}

// WithPollInterval sets how often AcquireContext rechecks its context.
func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithRegistry makes the coordinator count handles in r instead of the
// process-wide registry. Coordinators sharing a registry see each other's
// handles when deciding whether to unlink.
func WithRegistry(r *Registry) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.reg = r
		}
	}
}

func withDriver(d driver) Option {
	return func(c *Coordinator) {
		c.drv = d
	}
}
