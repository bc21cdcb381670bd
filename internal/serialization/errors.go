package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrFormat          = errors.New("parameter file format error")
	ErrUnsupportedKind = errors.New("dump kind not supported by layer")
)

// FormatError reports where a parameter file stopped making sense.
type FormatError struct {
	Line    int    // 1-based line number, 0 when not tied to a line
	Details string // What was wrong
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%v: line %d: %s", ErrFormat, e.Line, e.Details)
	}
	return fmt.Sprintf("%v: %s", ErrFormat, e.Details)
}

// Unwrap lets errors.Is match ErrFormat.
func (e *FormatError) Unwrap() error {
	return ErrFormat
}
