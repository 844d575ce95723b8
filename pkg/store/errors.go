package store

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Store methods (spec §7 error taxonomy:
// NotFound, Conflict, StoreError).
var (
	ErrNotFound     = errors.New("store: not found")
	ErrConflict     = errors.New("store: conflict")
	ErrAlreadyRunning = errors.New("store: a job of this sync type is already running")
)

// QueryError wraps a failed SQL operation with the statement's purpose,
// giving callers a stable Unwrap chain back to the driver error while
// logging something actionable (spec §7 "StoreError").
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func wrapQuery(op string, err error) error {
	if err == nil {
		return nil
	}
	return &QueryError{Op: op, Err: err}
}
