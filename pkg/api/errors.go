package api

import "errors"

// Sentinel errors for document operations.
var (
	// ErrNotANotebook is returned when a cell append is attempted on a
	// document whose type is not "notebook".
	ErrNotANotebook = errors.New(`document is not of type "notebook"`)
)
