//go:build unix

package namedsem

import (
	"errors"

	"golang.org/x/sys/unix"
)

// errnoKinds translates the codes reported by the sem_* family. Anything not
// listed falls through to KindResourceLimit.
var errnoKinds = map[unix.Errno]Kind{
	unix.EEXIST:       KindAlreadyExists,
	unix.ENOENT:       KindNotFound,
	unix.EACCES:       KindPermission,
	unix.EPERM:        KindPermission,
	unix.ETIMEDOUT:    KindTimeout,
	unix.EAGAIN:       KindWouldBlock,
	unix.EINTR:        KindInterrupted,
	unix.EOVERFLOW:    KindOverflow,
	unix.EINVAL:       KindInvalidValue,
	unix.ENAMETOOLONG: KindInvalidName,
	unix.EBADF:        KindClosedHandle,
	unix.EMFILE:       KindResourceLimit,
	unix.ENFILE:       KindResourceLimit,
	unix.ENOSPC:       KindResourceLimit,
	unix.ENOMEM:       KindResourceLimit,
	unix.ENOSYS:       KindResourceLimit,
}

// mapErrno converts an error returned by the driver into an *Error. Errors
// that are already *Error pass through unchanged.
func mapErrno(op, name string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return newError(op, name, KindResourceLimit, "%v", err)
	}
	kind, ok := errnoKinds[errno]
	if !ok {
		kind = KindResourceLimit
	}
	return newError(op, name, kind, "%s", errno.Error())
}

// isEINTR reports whether err is the retryable interruption code.
func isEINTR(err error) bool {
	return errors.Is(err, unix.EINTR)
}

// isETIMEDOUT reports whether a timed wait expired.
func isETIMEDOUT(err error) bool {
	return errors.Is(err, unix.ETIMEDOUT)
}
