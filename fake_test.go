//go:build unix

package namedsem

import (
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// fakeMaxValue is the capacity of a fake semaphore's token channel.
const fakeMaxValue = 1024

// fakeDriver is an in-memory stand-in for the kernel. Unlinking removes the
// name but leaves open descriptors working, as POSIX does.
type fakeDriver struct {
	mu      sync.Mutex
	objects map[string]*fakeObject
	unlinks atomic.Int32
}

type fakeObject struct {
	tokens chan struct{}
	posts  atomic.Int64
	waits  atomic.Int64
	// interrupts is how many upcoming waits fail with EINTR first
	interrupts atomic.Int32
}

type fakeSemaphore struct {
	obj    *fakeObject
	closed atomic.Bool
	closes atomic.Int32
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{objects: make(map[string]*fakeObject)}
}

func (d *fakeDriver) create(name string, perm os.FileMode, value uint32, exclusive bool) (sysSemaphore, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if obj, ok := d.objects[name]; ok {
		if exclusive {
			return nil, false, unix.EEXIST
		}
		return &fakeSemaphore{obj: obj}, false, nil
	}
	if value > fakeMaxValue {
		return nil, false, unix.EINVAL
	}
	obj := &fakeObject{tokens: make(chan struct{}, fakeMaxValue)}
	for i := uint32(0); i < value; i++ {
		obj.tokens <- struct{}{}
	}
	d.objects[name] = obj
	return &fakeSemaphore{obj: obj}, true, nil
}

func (d *fakeDriver) open(name string) (sysSemaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj, ok := d.objects[name]
	if !ok {
		return nil, unix.ENOENT
	}
	return &fakeSemaphore{obj: obj}, nil
}

func (d *fakeDriver) unlink(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.objects[name]; !ok {
		return unix.ENOENT
	}
	delete(d.objects, name)
	d.unlinks.Add(1)
	return nil
}

func (d *fakeDriver) object(name string) *fakeObject {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.objects[name]
}

func (d *fakeDriver) exists(name string) bool {
	return d.object(name) != nil
}

func (s *fakeSemaphore) interrupted() bool {
	for {
		n := s.obj.interrupts.Load()
		if n <= 0 {
			return false
		}
		if s.obj.interrupts.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

func (s *fakeSemaphore) wait() error {
	if s.closed.Load() {
		return unix.EBADF
	}
	if s.interrupted() {
		return unix.EINTR
	}
	<-s.obj.tokens
	s.obj.waits.Add(1)
	return nil
}

func (s *fakeSemaphore) tryWait() error {
	if s.closed.Load() {
		return unix.EBADF
	}
	select {
	case <-s.obj.tokens:
		s.obj.waits.Add(1)
		return nil
	default:
		return unix.EAGAIN
	}
}

func (s *fakeSemaphore) timedWait(deadline time.Time) error {
	if s.closed.Load() {
		return unix.EBADF
	}
	if s.interrupted() {
		return unix.EINTR
	}
	select {
	case <-s.obj.tokens:
		s.obj.waits.Add(1)
		return nil
	default:
	}
	d := time.Until(deadline)
	if d <= 0 {
		return unix.ETIMEDOUT
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.obj.tokens:
		s.obj.waits.Add(1)
		return nil
	case <-timer.C:
		return unix.ETIMEDOUT
	}
}

func (s *fakeSemaphore) post() error {
	if s.closed.Load() {
		return unix.EBADF
	}
	select {
	case s.obj.tokens <- struct{}{}:
		s.obj.posts.Add(1)
		return nil
	default:
		return unix.EOVERFLOW
	}
}

func (s *fakeSemaphore) value() (int, error) {
	if s.closed.Load() {
		return 0, unix.EBADF
	}
	return len(s.obj.tokens), nil
}

func (s *fakeSemaphore) close() error {
	s.closes.Add(1)
	if s.closed.Swap(true) {
		return unix.EBADF
	}
	return nil
}

// newTestCoordinator returns a coordinator on a fake kernel with its own
// registry and a silent logger.
func newTestCoordinator(t *testing.T) (*Coordinator, *fakeDriver) {
	t.Helper()
	drv := newFakeDriver()
	c := NewCoordinator(
		withDriver(drv),
		WithRegistry(NewRegistry()),
		WithLogger(log.New(io.Discard, "", 0)),
		WithPollInterval(5*time.Millisecond),
	)
	return c, drv
}

func mustOpen(t *testing.T, c *Coordinator, name string, initial int) *Handle {
	t.Helper()
	h, err := c.GetOrCreate(name, initial, false)
	if err != nil {
		t.Fatalf("GetOrCreate(%q, %d) failed: %v", name, initial, err)
	}
	return h
}

// countingReleaser records Release calls for guard tests.
type countingReleaser struct {
	releases atomic.Int32
}

func (r *countingReleaser) Release() error {
	r.releases.Add(1)
	return nil
}

// waitFor polls cond until it holds or the timeout passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
