package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultThreshold is the default maximum click-to-pose distance.
const DefaultThreshold = 5.0

// Columns is a named sequence of planar points with parallel coordinate arrays.
type Columns interface {
	Name() string
	XS() []float64
	YS() []float64
}

// Match is the result of a nearest-pose query. Found is false when no pose
// lies strictly closer than the threshold.
type Match struct {
	Found     bool    `json:"found"`
	Name      string  `json:"name,omitempty"`
	Candidate int     `json:"candidate"` // position of the matched trajectory in the candidate list
	Index     int     `json:"index"`     // local index within that trajectory
	Distance  float64 `json:"distance"`
}

// Nearest scans every point of every candidate for the one closest to (x, y).
// The first candidate to reach the minimum distance wins ties; within a
// candidate the lowest index does.
func Nearest[C Columns](x, y float64, candidates []C, threshold float64) Match {
	best := Match{Distance: math.Inf(1)}
	for ci, c := range candidates {
		xs, ys := c.XS(), c.YS()
		n := min(len(xs), len(ys))
		if n == 0 {
			continue
		}
		dists := make([]float64, n)
		for i := range dists {
			dists[i] = math.Hypot(xs[i]-x, ys[i]-y)
		}
		i := floats.MinIdx(dists)
		if dists[i] < best.Distance {
			best = Match{Name: c.Name(), Candidate: ci, Index: i, Distance: dists[i]}
		}
	}
	if best.Distance < threshold {
		best.Found = true
		return best
	}
	return Match{Distance: best.Distance}
}

// GlobalIndex converts a match to an index on the timeline formed by
// concatenating candidates in order.
func GlobalIndex[C Columns](candidates []C, m Match) int {
	off := 0
	for _, c := range candidates[:m.Candidate] {
		off += len(c.XS())
	}
	return off + m.Index
}
