package importer

import (
	"errors"
	"fmt"

	"github.com/poiesic/vecport/core"
)

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInvalidConfig indicates a run configuration that fails validation.
	ErrInvalidConfig = errors.New("invalid importer configuration")
)

// RunError is the terminal failure of an import run. It names the
// collection whose processing made the store unreachable (or, in strict
// mode, whose batch aborted). Batches committed before the failure stay
// committed.
type RunError struct {
	Collection core.Collection
	Cause      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("import failed on collection %s: %v", e.Collection, e.Cause)
}

func (e *RunError) Unwrap() error {
	return e.Cause
}
