package core

import "github.com/pkg/errors"

var (
	ErrUnauthorized       = errors.New("Unauthorized")
	ErrInvalidCredentials = errors.New("Invalid username or password")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ConstraintError is returned by storage when a write violates a uniqueness, foreign key or check constraint.
type ConstraintError struct {
	Constraint string
	Err        error
}

func NewConstraintError(constraint string, err error) error {
	return &ConstraintError{Constraint: constraint, Err: err}
}

func (err ConstraintError) Error() string {
	if err.Err == nil {
		return "constraint violation: " + err.Constraint
	}
	return err.Err.Error()
}

func (err ConstraintError) Unwrap() error { return err.Err }

// TxError wraps the failure that caused a multi-step transaction to be rolled back.
type TxError struct {
	Op  string
	Err error
}

func NewTxError(op string, err error) error {
	return &TxError{Op: op, Err: err}
}

func (err TxError) Error() string {
	return "Error " + err.Op + ": " + err.Err.Error()
}

func (err TxError) Unwrap() error { return err.Err }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
