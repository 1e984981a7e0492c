package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Cursor validation errors
	ErrTableNameRequired     = errors.New("table name is required")
	ErrTableNameTooLong      = errors.New("table name is too long")
	ErrRecordsSyncedNegative = errors.New("records synced cannot be negative")
	ErrLastSyncedAtRequired  = errors.New("last synced at is required")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsTableNameRequired(err error) bool {
	return errors.Is(err, ErrTableNameRequired)
}

func IsTableNameTooLong(err error) bool {
	return errors.Is(err, ErrTableNameTooLong)
}

func IsRecordsSyncedNegative(err error) bool {
	return errors.Is(err, ErrRecordsSyncedNegative)
}

func IsLastSyncedAtRequired(err error) bool {
	return errors.Is(err, ErrLastSyncedAtRequired)
}
