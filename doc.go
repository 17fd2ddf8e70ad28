// Package namedsem manages POSIX named semaphores: counting semaphores that
// the kernel keeps under a "/name" and that unrelated processes share by
// opening the same name.
//
// The wait and post calls themselves are one system call each. This package
// is about everything around them: deciding between creating and re-opening
// a name, counting the handles this process has open so cleanup unlinks the
// name only when the last one closes, releasing a count on every exit path,
// bounding waits by a timeout, and reporting failures as a closed set of
// error kinds.
//
// # Opening Semaphores
//
// A Coordinator validates names, opens descriptors, and counts them in a
// process-wide Registry. The package-level functions use a default
// Coordinator:
//
//	// Create "/jobqueue" with three slots, or open it if it exists
//	h, err := namedsem.GetOrCreate("/jobqueue", 3, false)
//
//	// Fail unless another process created it first
//	h, err := namedsem.OpenExisting("/jobqueue")
//
//	// Choose the policy explicitly: CreateExclusive, OpenOrCreate,
//	// MustExist or Recreate
//	c := namedsem.NewCoordinator(namedsem.WithPermissions(0660))
//	h, err := c.Open("jobqueue", namedsem.Recreate, 3)
//
// Names are normalized by NormalizeName: the leading "/" is optional, and
// only ASCII letters, digits, '-' and '_' are accepted.
//
// # Waiting and Releasing
//
//	err := h.Acquire()                      // block
//	err := h.TryAcquire()                   // ErrWouldBlock if the count is zero
//	err := h.AcquireTimeout(time.Second)    // ErrTimeout after one second
//	err := h.AcquireContext(ctx)            // ErrInterrupted when ctx is cancelled
//	err := h.Release()
//
// Interrupted system calls are retried inside the wait and never reach the
// caller.
//
// # Scoped Acquisition
//
// A Guard owns the obligation to release exactly one count. It releases on
// Guard.Release, and a Guard abandoned without Release is released when its
// context is done or when it is garbage collected:
//
//	g, err := h.Guard(ctx)
//	if err != nil {
//	    return err
//	}
//	defer g.Release()
//
// Handle.Do wraps the same pattern around a function. Its context bounds
// only the wait: once the count is taken it is held until the function
// returns or panics, even if the context is cancelled meanwhile.
//
// # Lifetime
//
// The kernel object outlives every process that uses it. Close releases only
// this process's descriptor. Unlink removes the name; descriptors already open
// keep working until they are closed. CleanupOnExit closes this process's
// handles for a name and unlinks it if none remain locally.
//
// Reference counts are process-local. Other processes may still be using a
// name when CleanupOnExit unlinks it, and a name may survive every process
// that used it if none of them unlinked it. Coordinating that across
// processes is the caller's job.
//
// # Errors
//
// Every failure is an *Error whose Kind is one of a closed set. Test for a
// kind with errors.Is:
//
//	if errors.Is(err, namedsem.ErrNotFound) {
//	    h, err = namedsem.GetOrCreate(name, 1, true)
//	}
//
// # Platform Support
//
// Semaphores are opened through cgo on Linux, macOS and the BSDs. Builds
// without cgo compile, but every open fails with ErrResourceLimit wrapping
// ErrSemaphoresNotAvailable's message. macOS limits names to 31 bytes and has
// no sem_timedwait, so timed waits poll there.
package namedsem
