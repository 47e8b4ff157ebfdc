package poselog

import (
	"strings"
	"time"
)

// TimestampLayout is the layout of pose timestamps without the millisecond suffix.
const TimestampLayout = "2006-01-02 15:04:05"

// Pose is one localization sample parsed from a log line.
// A Pose is a value; callers must not modify Aux in place.
type Pose struct {
	Timestamp string    `json:"timestamp"` // raw text, "YYYY-MM-DD HH:MM:SS[,mmm]"
	Time      time.Time `json:"time"`      // parsed Timestamp, UTC
	State     string    `json:"state,omitempty"`
	Type      int       `json:"type"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Roll      float64   `json:"roll"`  // fourth tuple value
	Pitch     float64   `json:"pitch"` // fifth tuple value
	Theta     float64   `json:"theta"` // sixth tuple value, heading in radians
	Aux       []float64 `json:"aux,omitempty"`
	Line      int       `json:"line"` // 1-based line number in the source file
}

// IsRealTime reports whether the pose state carries the given real-time tag.
func (p Pose) IsRealTime(tag string) bool {
	return tag != "" && strings.Contains(p.State, tag)
}

// DisplayStyle is the presentation hint attached to a landmark keyword.
type DisplayStyle struct {
	Color  string `json:"color"`
	Symbol string `json:"symbol"`
}

// LandmarkConfig selects landmark lines by keyword and names the positions
// of the two coordinates among all numbers found on the line.
type LandmarkConfig struct {
	Keyword string       `json:"keyword"`
	Indices [2]int       `json:"indices"`
	Style   DisplayStyle `json:"style"`
}

// Landmark is one occurrence of a configured keyword.
type Landmark struct {
	Keyword string
	X       float64
	Y       float64
	Line    int
}
