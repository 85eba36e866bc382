package jupyter

import "errors"

// Sentinel errors for backend operations.
var (
	// ErrNotFound is returned when the backend reports HTTP 404 for a
	// requested path.
	ErrNotFound = errors.New("not found")
)
