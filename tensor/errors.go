package tensor

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch reports that two shapes that had to agree did not.
//
// It is the sentinel wrapped by every shape validation failure in this
// module, so callers can test for the whole class with errors.Is.
var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeError provides detailed information about a shape validation failure.
type ShapeError struct {
	Op   string // Operation that failed (e.g., "MatMul", "OneHot")
	Want Shape
	Got  Shape
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: shape mismatch: want %v, got %v", e.Op, e.Want, e.Got)
}

// Unwrap makes errors.Is(err, ErrShapeMismatch) work.
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}
