package conversion

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingFields is returned when id or output_format is absent.
	ErrMissingFields = errors.New("missing required fields: 'id' and 'output_format'")
	// ErrUnsupported is matched by every UnsupportedError.
	ErrUnsupported = errors.New("unsupported conversion")
)

// UnsupportedError names the format pair no converter accepts.
type UnsupportedError struct {
	Input  string
	Output string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("no converter found for %s to %s", e.Input, e.Output)
}

// Is lets errors.Is(err, ErrUnsupported) match.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}
