package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tourdesk/backoffice/internal/repositories"
)

var (
	// ErrNotFound indicates the referenced tour, version or quote does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates the caller supplied a malformed or incomplete payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict indicates the write collides with existing state.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable indicates a backing dependency is temporarily unreachable.
	ErrUnavailable = errors.New("unavailable")
)

// ValidationError names the offending field of a rejected payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports which record was missing.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// VersionConflictError lists the sibling versions whose window overlaps a version of the same type.
type VersionConflictError struct {
	VersionType    string
	ConflictingIDs []string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("conflict: %s version overlaps existing versions [%s]", e.VersionType, strings.Join(e.ConflictingIDs, ", "))
}

func (e *VersionConflictError) Unwrap() error { return ErrConflict }

// translateRepoError maps repository failures onto the service sentinels.
func translateRepoError(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return &NotFoundError{Resource: resource, ID: id}
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return err
}
