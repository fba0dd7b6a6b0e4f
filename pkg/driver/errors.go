package driver

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Status is a coarse classification of a tlkm driver failure. It lets callers
// branch on the kind of failure (timeout vs. permission vs. device gone)
// without string-matching error messages.
type Status int

const (
	StatusSuccess Status = iota
	StatusInvalidArgument
	StatusOutOfHostMemory
	StatusTimeout
	StatusNotFound
	StatusOperationFailed
	StatusInterrupted
	StatusInvalidIoctl
	StatusWaitCanceled
	StatusConnectionRefused
)

var statusMessages = map[Status]string{
	StatusSuccess:           "success",
	StatusInvalidArgument:   "invalid argument",
	StatusOutOfHostMemory:   "out of host memory",
	StatusTimeout:           "timeout",
	StatusNotFound:          "not found",
	StatusOperationFailed:   "driver operation failed",
	StatusInterrupted:       "driver interrupted",
	StatusInvalidIoctl:      "driver invalid ioctl (version mismatch)",
	StatusWaitCanceled:      "driver wait canceled",
	StatusConnectionRefused: "connection refused",
}

// String returns the human-readable status message.
func (s Status) String() string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return fmt.Sprintf("unknown status (%d)", int(s))
}

// Error represents a failure returned by the tlkm driver.
type Error struct {
	Status  Status
	Context string
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Context != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Context, e.Status, e.Cause)
	case e.Context != "":
		return fmt.Sprintf("%s: %s", e.Context, e.Status)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Status, e.Cause)
	default:
		return e.Status.String()
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Status.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Status == other.Status
	}
	return false
}

// NewError creates an Error with no underlying cause.
func NewError(status Status, context string) *Error {
	return &Error{Status: status, Context: context}
}

// NewErrorWithCause creates an Error wrapping an underlying cause.
func NewErrorWithCause(status Status, context string, cause error) *Error {
	return &Error{Status: status, Context: context, Cause: cause}
}

// ErrnoToStatus maps a raw errno from an ioctl/syscall to a Status.
func ErrnoToStatus(errno unix.Errno) Status {
	switch errno {
	case unix.ENOMEM, unix.ENOBUFS:
		return StatusOutOfHostMemory
	case unix.ETIMEDOUT:
		return StatusTimeout
	case unix.ENOENT, unix.ENODEV:
		return StatusNotFound
	case unix.EINTR:
		return StatusInterrupted
	case unix.ENOTTY:
		return StatusInvalidIoctl
	case unix.ECANCELED:
		return StatusWaitCanceled
	case unix.ECONNREFUSED:
		return StatusConnectionRefused
	case unix.EINVAL, unix.EFAULT:
		return StatusInvalidArgument
	default:
		return StatusOperationFailed
	}
}

// StatusFromErrno builds an *Error from a raw errno.
func StatusFromErrno(errno unix.Errno, context string) *Error {
	return &Error{Status: ErrnoToStatus(errno), Context: context, Cause: errno}
}
