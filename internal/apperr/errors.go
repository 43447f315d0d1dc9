package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflicting pending request")
	ErrInvalidState = errors.New("request already resolved")
	ErrUnauthorized = errors.New("unauthorized")
)

// DependencyError reports a side-effect write (settlement, chat card) that
// failed after the confirm-request status transition already committed. The
// transition is never rolled back; the operation stays retryable.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func Dependency(op string, err error) *DependencyError {
	return &DependencyError{Op: op, Err: err}
}
