package repositories

import "fmt"

// CounterErrorCode enumerates failure reasons for counter operations.
type CounterErrorCode string

const (
	// CounterErrorUnknown represents an unspecified failure.
	CounterErrorUnknown CounterErrorCode = "counter_unknown"
	// CounterErrorInvalidInput indicates the caller supplied invalid arguments.
	CounterErrorInvalidInput CounterErrorCode = "counter_invalid_input"
	// CounterErrorExhausted indicates the counter reached its configured max value.
	CounterErrorExhausted CounterErrorCode = "counter_exhausted"
)

// CounterError wraps counter-specific failures with machine readable codes.
type CounterError struct {
	Op      string
	Code    CounterErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *CounterError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *CounterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsConflict lets services treat an exhausted sequence like any other rejected write.
func (e *CounterError) IsConflict() bool { return e != nil && e.Code == CounterErrorExhausted }

func (e *CounterError) IsNotFound() bool    { return false }
func (e *CounterError) IsUnavailable() bool { return false }

// NewCounterError constructs a typed counter error.
func NewCounterError(op string, code CounterErrorCode, message string, err error) *CounterError {
	if message == "" {
		message = string(code)
	}
	return &CounterError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// RaiseTo applies the raise-only InitialValue semantics of CounterConfig to a stored value.
func (c CounterConfig) RaiseTo(current int64) int64 {
	if c.InitialValue != nil && *c.InitialValue > current {
		return *c.InitialValue
	}
	return current
}
