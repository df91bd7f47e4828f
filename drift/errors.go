package drift

import "github.com/pkg/errors"

var (
	// ErrDegenerateGeometry is returned when a polygon encloses (almost) no area.
	// The frame's localization must be discarded.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	// ErrInsufficientHistory is returned when a baseline is missing for one of the references.
	ErrInsufficientHistory = errors.New("insufficient history")
)
