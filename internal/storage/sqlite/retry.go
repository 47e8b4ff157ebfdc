package sqlite

import (
	"strings"
	"time"
)

const (
	maxBusyAttempts  = 5
	initialBusyDelay = 10 * time.Millisecond
)

// isSQLiteBusy reports whether err is a SQLITE_BUSY / "database is locked" failure.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy runs fn until it succeeds, fails with a non-busy error, or
// maxBusyAttempts is reached. The delay doubles after each busy failure.
func retryOnBusy(fn func() error) error {
	delay := initialBusyDelay
	var err error
	for attempt := 1; attempt <= maxBusyAttempts; attempt++ {
		if err = fn(); !isSQLiteBusy(err) {
			return err
		}
		if attempt < maxBusyAttempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
