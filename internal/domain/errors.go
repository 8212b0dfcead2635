package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports every problem found in a BlogRequest.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("invalid blog request: %s", e.Errors[0])
	}
	return fmt.Sprintf("invalid blog request: %s", strings.Join(e.Errors, "; "))
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
