package engine

import "errors"

var (
	// ErrSingularMatrix is returned when inverting a transform whose
	// determinant is (nearly) zero.
	ErrSingularMatrix = errors.New("singular matrix")

	// ErrInvalidRange is returned when a constraint has min > max.
	ErrInvalidRange = errors.New("invalid constraint range")

	// ErrDegenerateSize is returned when a fit is requested for a panel or
	// content extent with a zero, negative or NaN dimension.
	ErrDegenerateSize = errors.New("degenerate size")
)
