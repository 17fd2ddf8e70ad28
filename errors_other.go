//go:build !unix

package namedsem

import "errors"

// mapErrno converts a driver error into an *Error. Without a POSIX errno
// table every failure is reported as a resource limit.
func mapErrno(op, name string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(op, name, KindResourceLimit, "%v", err)
}

func isEINTR(err error) bool {
	return false
}

func isETIMEDOUT(err error) bool {
	return false
}
