package analysis

import "errors"

// ErrInsufficientData is returned when there are too few samples to compute a result.
var ErrInsufficientData = errors.New("insufficient data")
