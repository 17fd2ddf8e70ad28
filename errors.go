package namedsem

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies every failure reported by this package. The set is closed:
// raw OS error codes are translated into exactly one Kind at the point of the
// system call and never escape on their own.
type Kind int

const (
	// KindInvalidName reports a name that is empty, too long, or contains
	// characters that are not portable across platforms.
	KindInvalidName Kind = iota + 1

	// KindInvalidValue reports an initial value, count, or timeout out of range.
	KindInvalidValue

	// KindAlreadyExists reports an exclusive create against an existing name.
	KindAlreadyExists

	// KindNotFound reports an open or unlink of a name that does not exist.
	KindNotFound

	// KindPermission reports that the caller may not create or open the name.
	KindPermission

	// KindTimeout reports a timed wait whose deadline passed.
	KindTimeout

	// KindWouldBlock reports a non-blocking wait on a zero count.
	KindWouldBlock

	// KindInterrupted reports an interruption that could not be retried.
	KindInterrupted

	// KindOverflow reports a release that would exceed MaxValue.
	KindOverflow

	// KindClosedHandle reports use of a handle after Close.
	KindClosedHandle

	// KindAlreadyClosed reports a second Close of the same handle or slot.
	KindAlreadyClosed

	// KindResourceLimit reports exhaustion of descriptors, memory, or any
	// other refusal by the OS that has no more specific kind.
	KindResourceLimit
)

var kindNames = map[Kind]string{
	KindInvalidName:   "invalid name",
	KindInvalidValue:  "invalid value",
	KindAlreadyExists: "already exists",
	KindNotFound:      "not found",
	KindPermission:    "permission denied",
	KindTimeout:       "timed out",
	KindWouldBlock:    "would block",
	KindInterrupted:   "interrupted",
	KindOverflow:      "value overflow",
	KindClosedHandle:  "handle is closed",
	KindAlreadyClosed: "already closed",
	KindResourceLimit: "resource limit",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinel errors for use with errors.Is. An *Error matches the sentinel of
// its Kind regardless of operation or name.
var (
	ErrInvalidName   = &Error{Kind: KindInvalidName}
	ErrInvalidValue  = &Error{Kind: KindInvalidValue}
	ErrAlreadyExists = &Error{Kind: KindAlreadyExists}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrPermission    = &Error{Kind: KindPermission}
	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrWouldBlock    = &Error{Kind: KindWouldBlock}
	ErrInterrupted   = &Error{Kind: KindInterrupted}
	ErrOverflow      = &Error{Kind: KindOverflow}
	ErrClosedHandle  = &Error{Kind: KindClosedHandle}
	ErrAlreadyClosed = &Error{Kind: KindAlreadyClosed}
	ErrResourceLimit = &Error{Kind: KindResourceLimit}
)

// Error describes a failed semaphore operation.
type Error struct {
	// Op is the operation that failed (e.g., "open", "wait", "unlink").
	Op string

	// Name is the semaphore name involved, if any.
	Name string

	// Kind is the taxonomy entry callers should branch on.
	Kind Kind

	// Detail is a human-readable cause, usually the OS error text.
	Detail string
}

// Error formats the failure as "namedsem: op name: kind: detail".
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("namedsem: ")
	switch {
	case e.Op != "" && e.Name != "":
		b.WriteString(e.Op + " " + e.Name + ": ")
	case e.Op != "":
		b.WriteString(e.Op + ": ")
	case e.Name != "":
		b.WriteString(e.Name + ": ")
	}
	b.WriteString(e.Kind.String())
	if e.Detail != "" {
		b.WriteString(": " + e.Detail)
	}
	return b.String()
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(op, name string, kind Kind, format string, args ...interface{}) *Error {
	return &Error{Op: op, Name: name, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
