package rotate

import (
	"errors"
	"fmt"
)

// Common errors returned by the engine and its helpers.
var (
	// ErrNoGroups is returned by Run when no policies were supplied.
	ErrNoGroups = errors.New("rotate: no log groups to process")

	// ErrDirectoryMissing is returned when a group's directory does not
	// exist. The engine treats this as a skip, not a failure.
	ErrDirectoryMissing = errors.New("rotate: directory does not exist")

	// ErrNotDirectory is returned when a group's configured directory
	// path exists but is not a directory.
	ErrNotDirectory = errors.New("rotate: not a directory")
)

// OpError wraps an error with the failed operation and path for context.
type OpError struct {
	Op   string // Operation that failed (e.g., "shift", "copy", "compress", "delete")
	Path string // Affected file path
	Err  error  // Underlying error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("rotate: %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
