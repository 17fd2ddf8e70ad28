//go:build cgo && (linux || darwin || freebsd || netbsd || openbsd)

package namedsem

/*
#cgo linux LDFLAGS: -pthread
#include <errno.h>
#include <fcntl.h>
#include <limits.h>
#include <semaphore.h>
#include <stdlib.h>
#include <sys/stat.h>
#include <time.h>

#ifndef SEM_VALUE_MAX
#define SEM_VALUE_MAX 32767
#endif

// sem_open is variadic, which cgo cannot call directly.
static sem_t *namedsem_create(const char *name, int oflag, mode_t mode, unsigned int value) {
	return sem_open(name, oflag, mode, value);
}

static sem_t *namedsem_open(const char *name) {
	return sem_open(name, 0);
}

static int namedsem_failed(sem_t *s) {
	return s == SEM_FAILED;
}

static unsigned int namedsem_value_max(void) {
	return (unsigned int)SEM_VALUE_MAX;
}

static int namedsem_timedwait(sem_t *s, long long sec, long nsec) {
	struct timespec deadline;
	deadline.tv_sec = (time_t)sec;
	deadline.tv_nsec = nsec;
#ifdef __APPLE__
	// darwin has no sem_timedwait.
	struct timespec now, nap;
	nap.tv_sec = 0;
	nap.tv_nsec = 1000000;
	for (;;) {
		if (sem_trywait(s) == 0) {
			return 0;
		}
		if (errno != EAGAIN) {
			return -1;
		}
		clock_gettime(CLOCK_REALTIME, &now);
		if (now.tv_sec > deadline.tv_sec ||
			(now.tv_sec == deadline.tv_sec && now.tv_nsec >= deadline.tv_nsec)) {
			errno = ETIMEDOUT;
			return -1;
		}
		nanosleep(&nap, NULL);
	}
#else
	return sem_timedwait(s, &deadline);
#endif
}
*/
import "C"

import (
	"errors"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MaxValue is the largest count a semaphore may hold (SEM_VALUE_MAX).
var MaxValue = int(C.namedsem_value_max())

// driverSupported reports whether named semaphores work in this build.
const driverSupported = true

// createAttempts bounds the create/open retry when another process unlinks
// the name between our O_EXCL attempt and the fallback open.
const createAttempts = 3

var defaultDriver driver = posixDriver{}

// posixDriver calls the POSIX sem_* family through cgo.
type posixDriver struct{}

type posixSemaphore struct {
	sem *C.sem_t
}

// errnoOr returns err when the call set errno, otherwise a generic failure.
func errnoOr(err error, call string) error {
	if err != nil {
		return err
	}
	return errors.New(call + " failed without setting errno")
}

func (posixDriver) create(name string, perm os.FileMode, value uint32, exclusive bool) (sysSemaphore, bool, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var lastErr error
	for i := 0; i < createAttempts; i++ {
		s, err := C.namedsem_create(cName, C.O_CREAT|C.O_EXCL, C.mode_t(perm.Perm()), C.uint(value))
		if C.namedsem_failed(s) == 0 {
			return &posixSemaphore{sem: s}, true, nil
		}
		if exclusive || !errors.Is(err, unix.EEXIST) {
			return nil, false, errnoOr(err, "sem_open")
		}

		s, err = C.namedsem_open(cName)
		if C.namedsem_failed(s) == 0 {
			return &posixSemaphore{sem: s}, false, nil
		}
		lastErr = errnoOr(err, "sem_open")
		if !errors.Is(err, unix.ENOENT) {
			return nil, false, lastErr
		}
	}
	return nil, false, lastErr
}

func (posixDriver) open(name string) (sysSemaphore, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	s, err := C.namedsem_open(cName)
	if C.namedsem_failed(s) != 0 {
		return nil, errnoOr(err, "sem_open")
	}
	return &posixSemaphore{sem: s}, nil
}

func (posixDriver) unlink(name string) error {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	if r, err := C.sem_unlink(cName); r != 0 {
		return errnoOr(err, "sem_unlink")
	}
	return nil
}

func (p *posixSemaphore) wait() error {
	if r, err := C.sem_wait(p.sem); r != 0 {
		return errnoOr(err, "sem_wait")
	}
	return nil
}

func (p *posixSemaphore) tryWait() error {
	if r, err := C.sem_trywait(p.sem); r != 0 {
		return errnoOr(err, "sem_trywait")
	}
	return nil
}

func (p *posixSemaphore) timedWait(deadline time.Time) error {
	r, err := C.namedsem_timedwait(p.sem, C.longlong(deadline.Unix()), C.long(deadline.Nanosecond()))
	if r != 0 {
		return errnoOr(err, "sem_timedwait")
	}
	return nil
}

func (p *posixSemaphore) post() error {
	if r, err := C.sem_post(p.sem); r != 0 {
		return errnoOr(err, "sem_post")
	}
	return nil
}

func (p *posixSemaphore) value() (int, error) {
	var v C.int
	if r, err := C.sem_getvalue(p.sem, &v); r != 0 {
		return 0, errnoOr(err, "sem_getvalue")
	}
	return int(v), nil
}

func (p *posixSemaphore) close() error {
	if r, err := C.sem_close(p.sem); r != 0 {
		return errnoOr(err, "sem_close")
	}
	return nil
}
