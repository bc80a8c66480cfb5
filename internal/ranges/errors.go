package ranges

import (
	"errors"
	"fmt"
)

// NotFoundError reports a range or element absent from every source.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ValidationError reports caller-correctable input problems: missing or
// duplicate ids, circular parent references, invalid migration operations,
// or in-use deletions attempted without a migration.
type ValidationError struct {
	Message string
	Details any
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DatabaseError reports an unreachable or failing backing store. Retry
// policy belongs to the caller.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

func notFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func invalidWith(details any, format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...), Details: details}
}

func dbError(op string, err error) error {
	return &DatabaseError{Op: op, Err: err}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
