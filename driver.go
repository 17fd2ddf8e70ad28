package namedsem

import (
	"os"
	"time"
)

// driver is the boundary to the operating system's named semaphore calls.
// Implementations return raw OS errors; callers map them with mapErrno.
type driver interface {
	// create makes a new semaphore. When exclusive is false and the name
	// already exists, the existing object is opened instead and created is
	// false.
	create(name string, perm os.FileMode, value uint32, exclusive bool) (s sysSemaphore, created bool, err error)

	// open opens an existing semaphore.
	open(name string) (sysSemaphore, error)

	// unlink removes the name from the system namespace.
	unlink(name string) error
}

// sysSemaphore is one open descriptor. Methods map one-to-one onto sem_wait,
// sem_trywait, sem_timedwait, sem_post, sem_getvalue and sem_close.
type sysSemaphore interface {
	wait() error
	tryWait() error
	timedWait(deadline time.Time) error
	post() error
	value() (int, error)
	close() error
}
