package service

import (
	"errors"
	"fmt"

	"procurement/internal/tax"
	"procurement/internal/workflow"

	"gorm.io/gorm"
)

// Sentinel errors returned by every service. Handlers map them to HTTP
// status codes; anything else is an internal error.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrInvalidTransition = workflow.ErrInvalidTransition
	ErrAlreadyDecided    = errors.New("already decided")
	ErrConflict          = errors.New("conflict")
)

// FieldError is a validation failure on a single input field
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...interface{}) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func denied(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrPermissionDenied)
}

// dbError translates gorm errors into sentinels; what names the entity.
func dbError(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s %w", what, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s already exists: %w", what, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// fromRuleError lifts tax package validation failures into FieldError
func fromRuleError(err error) error {
	var re *tax.RuleError
	if errors.As(err, &re) {
		return &FieldError{Field: re.Field, Message: re.Reason}
	}
	return err
}
