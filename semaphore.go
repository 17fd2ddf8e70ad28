package namedsem

import "time"

// Semaphore provides cross-process synchronization using named semaphores.
// *Handle is the implementation; the interface exists so callers can swap in
// an in-process double when testing code that coordinates with other
// processes.
//
// Every method reports failures as *Error, so callers branch with errors.Is:
//
//	h, _ := namedsem.GetOrCreate("/my_sem", 1, false)
//	defer h.Close()
//
//	if err := h.AcquireTimeout(time.Second); errors.Is(err, namedsem.ErrTimeout) {
//		// retry later
//	}
//	// critical section - access shared resource
//	h.Release()
type Semaphore interface {
	// Acquire blocks until the semaphore can be decremented.
	Acquire() error

	// Release increments the semaphore, potentially unblocking a waiter.
	Release() error

	// TryAcquire decrements the semaphore without blocking, failing with
	// ErrWouldBlock when the count is zero.
	TryAcquire() error

	// AcquireTimeout waits at most d, failing with ErrTimeout when it elapses.
	AcquireTimeout(d time.Duration) error

	// Close releases this process's descriptor. The kernel object survives
	// until it is unlinked.
	Close() error
}
