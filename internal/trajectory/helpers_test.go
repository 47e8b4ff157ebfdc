package trajectory

import (
	"strconv"
	"time"
)

var baseTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
