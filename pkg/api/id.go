package api

import "github.com/google/uuid"

// NewCellID generates a unique identifier for a notebook cell.
func NewCellID() string {
	return uuid.NewString()
}

// NewImageFilename generates a unique PNG filename for an extracted
// image artifact.
func NewImageFilename() string {
	return uuid.NewString() + ".png"
}
