package nn

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrInvalidGeometry = errors.New("invalid layer geometry")
	ErrEmptyNetwork    = errors.New("network has no layers")
	ErrNoData          = errors.New("no training samples")
	ErrDiverged        = errors.New("training diverged")
)

func sizeError(layer, what string, want, got int) error {
	if layer == "" {
		return fmt.Errorf("%s: size %d, want %d: %w", what, got, want, ErrShapeMismatch)
	}
	return fmt.Errorf("%s: %s: size %d, want %d: %w", layer, what, got, want, ErrShapeMismatch)
}

func geometryError(layer string, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if layer == "" {
		return fmt.Errorf("%s: %w", msg, ErrInvalidGeometry)
	}
	return fmt.Errorf("%s: %s: %w", layer, msg, ErrInvalidGeometry)
}
