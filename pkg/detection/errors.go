package detection

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNotLoaded is returned when a scan or check is issued before Load completes.
	ErrNotLoaded = errors.New("detection: models not loaded")

	// ErrEmptyFrame is returned when the frame has no pixels.
	ErrEmptyFrame = errors.New("detection: empty frame")
)

// ModelLoadError reports that a sub-model failed to initialize.
type ModelLoadError struct {
	// Model names the sub-model that failed.
	Model string

	// Path is the model location that was tried.
	Path string

	Err error
}

// Error implements the error interface.
func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("detection: load %s model from %s: %v", e.Model, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// IsModelLoadError reports whether err is or wraps a *ModelLoadError.
func IsModelLoadError(err error) bool {
	var target *ModelLoadError
	return errors.As(err, &target)
}
