package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/lms-registry/internal/validator"
)

// Error kinds. Every failed registry operation matches exactly one of these
// through errors.Is; anything else is an infrastructure failure.
var (
	ErrUnauthorized              = errors.New("unauthorized")
	ErrNotFound                  = errors.New("not found")
	ErrInvalidArgument           = errors.New("invalid argument")
	ErrAlreadyRegisteredConflict = errors.New("already registered conflict")
)

var (
	ErrUserNotFound   = fmt.Errorf("user %w", ErrNotFound)
	ErrCourseNotFound = fmt.Errorf("course %w", ErrNotFound)
	ErrExamNotFound   = fmt.Errorf("exam %w", ErrNotFound)
)

type ErrorKind string

const (
	KindNone                      ErrorKind = ""
	KindUnauthorized              ErrorKind = "Unauthorized"
	KindNotFound                  ErrorKind = "NotFound"
	KindInvalidArgument           ErrorKind = "InvalidArgument"
	KindAlreadyRegisteredConflict ErrorKind = "AlreadyRegisteredConflict"
)

// KindOf classifies err. KindNone means err is nil or not a registry failure.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrAlreadyRegisteredConflict):
		return KindAlreadyRegisteredConflict
	default:
		return KindNone
	}
}

// PermissionError represents a failed role or ownership check
type PermissionError struct {
	UserID     string
	ResourceID interface{}
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %q may not %s %s %v: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrUnauthorized
}

func NewPermissionError(userID string, resourceID interface{}, resource, action, reason string) error {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

type ValidationErrors = validator.ValidationErrors

// NewValidationError wraps field failures so they match both ErrInvalidArgument
// and ValidationErrors.
func NewValidationError(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
}

func newFieldError(field, message string, value interface{}) error {
	return NewValidationError(ValidationErrors{{Field: field, Message: message, Value: value, Rule: "business_logic"}})
}

// ConflictError is returned when a re-registration would change state that
// other records depend on.
type ConflictError struct {
	Identity     string
	OwnedCourses int64
	Reason       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("identity %q already registered (%d owned courses): %s", e.Identity, e.OwnedCourses, e.Reason)
}

func (e *ConflictError) Unwrap() error {
	return ErrAlreadyRegisteredConflict
}
