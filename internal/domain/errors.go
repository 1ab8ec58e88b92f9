package domain

import (
	"errors"
	"fmt"
)

// Ledger error kinds. Callers match them with errors.Is.
var (
	ErrValidation       = errors.New("VALIDATION_ERROR")
	ErrNotFound         = errors.New("NOT_FOUND")
	ErrDuplicateName    = errors.New("DUPLICATE_NAME")
	ErrDuplicateProduct = errors.New("DUPLICATE_PRODUCT")
	ErrInvalidState     = errors.New("INVALID_STATE")
	ErrPersistence      = errors.New("PERSISTENCE_ERROR")
	ErrCorruptData      = errors.New("CORRUPT_DATA")

	// Refinements keep the parent kind visible to errors.Is.
	ErrInvalidInput   = fmt.Errorf("INVALID_INPUT: %w", ErrValidation)
	ErrDuplicateMonth = fmt.Errorf("DUPLICATE_MONTH: %w", ErrDuplicateName)
	ErrAlreadyDeleted = fmt.Errorf("ALREADY_DELETED: %w", ErrInvalidState)
	ErrNotDeleted     = fmt.Errorf("NOT_DELETED: %w", ErrInvalidState)
)

// Validationf builds a validation error carrying a field-level message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf builds a not-found error naming the missing entity.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
