package loop

import "errors"

var (
	// ErrDegeneratePath is returned when a reference path has fewer than
	// two points, non-finite coordinates, or zero total length.
	ErrDegeneratePath = errors.New("degenerate path")

	// ErrInvalidSpacing is returned by Resample for a non-positive spacing
	// or one that would produce more than MaxResamplePoints points.
	ErrInvalidSpacing = errors.New("invalid resample spacing")
)
