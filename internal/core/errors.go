package core

import (
	"errors"
	"fmt"
)

var (
	ErrConnectFailure    = errors.New("channel connect failure")
	ErrPermissionDenied  = errors.New("media permission denied")
	ErrNoDevice          = errors.New("no media device")
	ErrGuardViolation    = errors.New("negotiation guard violation")
	ErrCandidateRejected = errors.New("candidate rejected")
	ErrSyncApply         = errors.New("sync apply failure")
	ErrRoomFull          = errors.New("room is full")
	ErrBackpressure      = errors.New("backpressure")
	ErrClosed            = errors.New("closed")
)

// OpError names the operation that failed. Callers match the cause with errors.Is.
type OpError struct {
	Op      string
	Err     error
	Details string
}

func (e *OpError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *OpError {
	return &OpError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *OpError {
	return &OpError{Op: op, Err: err, Details: details}
}
