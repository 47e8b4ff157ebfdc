package trajectory

import (
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/pose.report/internal/poselog"
)

// Range is an inclusive index range over a pose sequence. Adjusted is set
// when the requested bounds had to be clamped; Note says how.
type Range struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Adjusted bool   `json:"adjusted"`
	Note     string `json:"note,omitempty"`
}

// Len is the number of poses in the range.
func (r Range) Len() int { return r.End - r.Start + 1 }

// Slice returns the poses covered by r. r must come from SelectIndexRange
// over a sequence of the same length.
func (r Range) Slice(poses []poselog.Pose) []poselog.Pose {
	return poses[r.Start : r.End+1]
}

// SelectIndexRange clamps [start, end] into a sequence of length n. A start
// after end is moved to end, leaving a single-point range.
func SelectIndexRange(n, start, end int) (Range, error) {
	if n <= 0 {
		return Range{}, fmt.Errorf("%w: empty sequence", ErrInvalidSelection)
	}
	r := Range{Start: start, End: end}
	var notes []string
	clamp := func(v *int, label string) {
		switch {
		case *v < 0:
			notes = append(notes, fmt.Sprintf("%s %d clamped to 0", label, *v))
			*v = 0
		case *v > n-1:
			notes = append(notes, fmt.Sprintf("%s %d clamped to %d", label, *v, n-1))
			*v = n - 1
		}
	}
	clamp(&r.Start, "start")
	clamp(&r.End, "end")
	if r.Start > r.End {
		notes = append(notes, fmt.Sprintf("start %d after end %d, moved to end", r.Start, r.End))
		r.Start = r.End
	}
	if len(notes) > 0 {
		r.Adjusted = true
		r.Note = strings.Join(notes, "; ")
	}
	return r, nil
}

// Window selects poses by inclusive time bounds and an optional type code.
// Bounds and pose times are compared at whole-second resolution, so a bound
// of HH:MM:SS covers every pose stamped within that second. A zero From or
// To leaves that side open.
type Window struct {
	From time.Time
	To   time.Time
	Type *int
}

// WindowSelection is the outcome of FilterWindow.
type WindowSelection struct {
	Window   Window
	Poses    []poselog.Pose
	Adjusted bool
	Note     string
}

// FilterWindow keeps poses inside w in their input order. A From after To is
// moved to To and reported, leaving the single second To names.
func FilterWindow(poses []poselog.Pose, w Window) WindowSelection {
	sel := WindowSelection{Window: w}
	from, to := w.From.Truncate(time.Second), w.To.Truncate(time.Second)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		sel.Adjusted = true
		sel.Note = fmt.Sprintf("from %s after to %s, moved to to",
			from.Format(poselog.TimestampLayout), to.Format(poselog.TimestampLayout))
		sel.Window.From = w.To
		from = to
	}
	for _, p := range poses {
		t := p.Time.Truncate(time.Second)
		if !from.IsZero() && t.Before(from) {
			continue
		}
		if !to.IsZero() && t.After(to) {
			continue
		}
		if w.Type != nil && p.Type != *w.Type {
			continue
		}
		sel.Poses = append(sel.Poses, p)
	}
	return sel
}

var timeLayouts = []string{
	poselog.TimestampLayout + ",000",
	poselog.TimestampLayout,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// ParseTime parses a window bound. It accepts the log timestamp format with
// or without milliseconds, an ISO date-time and RFC 3339. Times without a
// zone are UTC. An empty string is the zero time, an open bound.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised time %q", ErrInvalidSelection, s)
}
