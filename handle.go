package namedsem

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Handle owns one open descriptor of a named semaphore. Handles are obtained
// from a Coordinator, which counts them in its Registry.
//
// Handle is safe for concurrent use by multiple goroutines. Close may be
// called while other goroutines are blocked in Acquire: the handle is marked
// closed immediately, later calls fail with ErrClosedHandle, and the
// descriptor itself is released when the last in-flight call returns.
type Handle struct {
	name    Name
	sem     sysSemaphore
	created bool
	initial int

	registry     *Registry
	slot         *Slot
	logger       *log.Logger
	pollInterval time.Duration

	mu       sync.Mutex
	closed   bool
	inflight int
	// released records that sem.close has been issued
	released bool
}

var _ Semaphore = (*Handle)(nil)

// Name returns the semaphore's name.
func (h *Handle) Name() Name {
	return h.name
}

// Created reports whether this handle created the kernel object, as opposed
// to opening one that already existed.
func (h *Handle) Created() bool {
	return h.created
}

// InitialValue returns the value the semaphore was created with. It is only
// meaningful when Created is true.
func (h *Handle) InitialValue() int {
	return h.initial
}

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// enter registers an in-flight call, failing if the handle is closed.
func (h *Handle) enter(op string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return &Error{Op: op, Name: h.name.value, Kind: KindClosedHandle}
	}
	h.inflight++
	return nil
}

// exit ends an in-flight call and performs a close deferred by Close.
func (h *Handle) exit() {
	h.mu.Lock()
	h.inflight--
	last := h.closed && h.inflight == 0 && !h.released
	if last {
		h.released = true
	}
	h.mu.Unlock()

	if last {
		if err := h.sem.close(); err != nil {
			h.logger.Printf("namedsem: deferred close of %s failed: %v", h.name, err)
		}
	}
}

// Acquire blocks until the count is positive and decrements it. Interrupted
// system calls are retried.
func (h *Handle) Acquire() error {
	if err := h.enter("wait"); err != nil {
		return err
	}
	defer h.exit()

	for {
		err := h.sem.wait()
		if err == nil {
			return nil
		}
		if !isEINTR(err) {
			return mapErrno("wait", h.name.value, err)
		}
	}
}

// TryAcquire decrements the count if it is positive and otherwise fails
// immediately with ErrWouldBlock.
func (h *Handle) TryAcquire() error {
	if err := h.enter("trywait"); err != nil {
		return err
	}
	defer h.exit()

	return mapErrno("trywait", h.name.value, h.sem.tryWait())
}

// AcquireTimeout waits at most d for the count to become positive. It fails
// with ErrTimeout when d elapses first. A zero d behaves as TryAcquire and a
// negative d is rejected with ErrInvalidValue.
func (h *Handle) AcquireTimeout(d time.Duration) error {
	if d < 0 {
		return newError("timedwait", h.name.value, KindInvalidValue, "negative timeout %v", d)
	}
	if d == 0 {
		return h.TryAcquire()
	}
	if err := h.enter("timedwait"); err != nil {
		return err
	}
	defer h.exit()

	deadline := time.Now().Add(d)
	for {
		err := h.sem.timedWait(deadline)
		switch {
		case err == nil:
			return nil
		case isEINTR(err):
			continue
		case isETIMEDOUT(err):
			return newError("timedwait", h.name.value, KindTimeout, "waited %v", d)
		default:
			return mapErrno("timedwait", h.name.value, err)
		}
	}
}

// AcquireContext waits until the count is positive or ctx is done. The kernel
// wait cannot be cancelled directly, so the wait is split into timed waits of
// the coordinator's poll interval. A cancelled ctx yields ErrInterrupted and
// an expired ctx deadline yields ErrTimeout.
func (h *Handle) AcquireContext(ctx context.Context) error {
	if ctx.Done() == nil {
		return h.Acquire()
	}
	if err := h.enter("wait"); err != nil {
		return err
	}
	defer h.exit()

	for {
		if err := ctx.Err(); err != nil {
			return contextError("wait", h.name.value, err)
		}
		deadline := time.Now().Add(h.pollInterval)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		err := h.sem.timedWait(deadline)
		switch {
		case err == nil:
			return nil
		case isEINTR(err), isETIMEDOUT(err):
			continue
		default:
			return mapErrno("wait", h.name.value, err)
		}
	}
}

func contextError(op, name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(op, name, KindTimeout, "%v", err)
	}
	return newError(op, name, KindInterrupted, "%v", err)
}

// Release increments the count, waking at most one waiter. It fails with
// ErrOverflow if the count is already MaxValue.
func (h *Handle) Release() error {
	return h.ReleaseN(1)
}

// ReleaseN increments the count n times. It stops at the first failure, so
// on error fewer than n increments may have been applied.
func (h *Handle) ReleaseN(n int) error {
	if n < 1 {
		return newError("post", h.name.value, KindInvalidValue, "count %d must be positive", n)
	}
	if err := h.enter("post"); err != nil {
		return err
	}
	defer h.exit()

	for i := 0; i < n; i++ {
		if err := h.sem.post(); err != nil {
			return mapErrno("post", h.name.value, err)
		}
	}
	return nil
}

// Value returns the current count. Not every platform implements
// sem_getvalue; darwin reports ErrResourceLimit.
func (h *Handle) Value() (int, error) {
	if err := h.enter("getvalue"); err != nil {
		return 0, err
	}
	defer h.exit()

	v, err := h.sem.value()
	if err != nil {
		return 0, mapErrno("getvalue", h.name.value, err)
	}
	return v, nil
}

// Close releases this process's descriptor and its registry slot. It never
// unlinks the kernel object. A second Close fails with ErrAlreadyClosed.
func (h *Handle) Close() error {
	_, err := h.close()
	return err
}

// close returns the number of local holders left for the name after this
// handle's slot was released.
func (h *Handle) close() (int, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return 0, &Error{Op: "close", Name: h.name.value, Kind: KindAlreadyClosed}
	}
	h.closed = true
	now := h.inflight == 0
	if now {
		h.released = true
	}
	h.mu.Unlock()

	var err error
	if now {
		err = mapErrno("close", h.name.value, h.sem.close())
	}
	remaining := 0
	if h.slot != nil {
		n, rerr := h.registry.Release(h.slot)
		remaining = n
		if err == nil {
			err = rerr
		}
	}
	return remaining, err
}
