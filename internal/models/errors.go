package models

import (
	"errors"
	"fmt"
)

// ErrNotFound signals an operation on a group that has no configuration.
var ErrNotFound = errors.New("group not configured")

// ErrPermissionDenied signals a configuration command from a non-admin user.
var ErrPermissionDenied = errors.New("permission denied")

// ValidationError reports a user-correctable problem with command arguments.
// The message is rendered back to the chat as-is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
