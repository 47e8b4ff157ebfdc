package trajectory

import "errors"

var (
	// ErrInvalidSelection reports an unknown trajectory name or a range that
	// cannot be satisfied even after clamping.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrDirectoryUnavailable reports that the log directory itself could not
	// be opened or listed.
	ErrDirectoryUnavailable = errors.New("log directory unavailable")
)
