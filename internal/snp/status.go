package snp

import (
	"errors"
	"fmt"
)

// Status is a firmware status code. Non-success statuses are errors, so
// callers test for them with errors.Is.
type Status uint32

const (
	StatusSuccess Status = iota
	StatusNotReady
	StatusBufferTooSmall
	StatusInvalidParameter
	StatusDeviceError
	StatusNotStarted
	StatusUnsupported
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotReady:
		return "not ready"
	case StatusBufferTooSmall:
		return "buffer too small"
	case StatusInvalidParameter:
		return "invalid parameter"
	case StatusDeviceError:
		return "device error"
	case StatusNotStarted:
		return "not started"
	case StatusUnsupported:
		return "unsupported"
	}
	return fmt.Sprintf("status %d", uint32(s))
}

func (s Status) Error() string { return s.String() }

// Error is returned by SimpleNetwork operations.
type Error struct {
	Op     string
	Status Status
	// Size is the buffer size required when Status is StatusBufferTooSmall.
	Size int
	// Err is the underlying cause reported by the backing driver, if any.
	Err error
}

func (e *Error) Error() string {
	msg := "snp " + e.Op + ": " + e.Status.String()
	if e.Status == StatusBufferTooSmall && e.Size > 0 {
		msg += fmt.Sprintf(" (need %d bytes)", e.Size)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the status and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Status}
	}
	return []error{e.Status, e.Err}
}

func newError(op string, status Status) *Error {
	return &Error{Op: op, Status: status}
}

// StatusOf extracts the firmware status carried by err. A nil error is
// StatusSuccess; an error with no status is reported as StatusDeviceError.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	return StatusDeviceError
}
