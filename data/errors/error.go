package errors

import (
	"errors"
	"fmt"
)

// newError wraps both the sentinel and the cause, so errors.Is matches either.
func newError(sentinel, err error, format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", sentinel, text, err)
	}

	return fmt.Errorf("%w: %s", sentinel, text)
}

// Is is a shorthand for errors.Is, since this package shadows the standard one.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
