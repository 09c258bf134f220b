package service

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidModeError reports a mode value outside the known set.
type InvalidModeError struct{ Value string }

func (e *InvalidModeError) Error() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return fmt.Sprintf("invalid service mode %q (want one of %s)", e.Value, strings.Join(names, ", "))
}

// IsInvalidMode reports whether err is or wraps an InvalidModeError.
func IsInvalidMode(err error) bool {
	var e *InvalidModeError
	return errors.As(err, &e)
}
