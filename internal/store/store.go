package store

// Store defines the interface for fit-result persistence.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the result doesn't exist (Load/Delete/Find)
//   - Return descriptive errors for I/O, serialization, or validation failures
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveResult atomically persists a fit result. An existing result
	// with the same ID is overwritten.
	SaveResult(result *FitResult) error

	// LoadResult retrieves the result with the given ID.
	// Returns ErrNotFound if no such result exists.
	LoadResult(id string) (*FitResult, error)

	// ListResults returns metadata for all stored results. The slice
	// may be empty.
	ListResults() ([]ResultInfo, error)

	// DeleteResult removes the result and all associated artifacts,
	// including its trace. Returns ErrNotFound if no such result
	// exists.
	DeleteResult(id string) error

	// FindByFingerprint returns the first stored result whose input
	// fingerprint matches. Returns ErrNotFound when nothing matches.
	FindByFingerprint(fingerprint string) (*FitResult, error)

	// SaveTrace persists the objective evaluation history for a
	// result, replacing any previous trace.
	SaveTrace(id string, entries []TraceEntry) error

	// LoadTrace retrieves the objective evaluation history for a
	// result. Returns ErrNotFound if the result has no trace.
	LoadTrace(id string) ([]TraceEntry, error)
}

// ErrNotFound is returned when a requested fit result does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing fit result.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return "fit result not found: " + e.ID
	}
	return "fit result not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
