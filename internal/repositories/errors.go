package repositories

import (
	"errors"
	"fmt"
)

type storeErrorKind int

const (
	storeErrorUnknown storeErrorKind = iota
	storeErrorNotFound
	storeErrorConflict
	storeErrorUnavailable
)

// StoreError is the RepositoryError used by the in-memory and MongoDB stores.
type StoreError struct {
	Op   string
	Err  error
	kind storeErrorKind
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *StoreError) IsNotFound() bool    { return e != nil && e.kind == storeErrorNotFound }
func (e *StoreError) IsConflict() bool    { return e != nil && e.kind == storeErrorConflict }
func (e *StoreError) IsUnavailable() bool { return e != nil && e.kind == storeErrorUnavailable }

// NewNotFoundError reports a missing record.
func NewNotFoundError(op, resource, id string) error {
	return &StoreError{Op: op, Err: fmt.Errorf("%s %q not found", resource, id), kind: storeErrorNotFound}
}

// NewConflictError reports a write rejected by a uniqueness rule.
func NewConflictError(op string, err error) error {
	if err == nil {
		err = errors.New("conflict")
	}
	return &StoreError{Op: op, Err: err, kind: storeErrorConflict}
}

// NewUnavailableError reports a transient backend failure.
func NewUnavailableError(op string, err error) error {
	return &StoreError{Op: op, Err: err, kind: storeErrorUnavailable}
}

// NewStoreError wraps an unclassified backend failure.
func NewStoreError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
