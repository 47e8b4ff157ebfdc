package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// covarianceEpsilon treats covariance terms below it as zero in the
// closed-form fallback.
const covarianceEpsilon = 1e-12

// LineFit is an orthogonal-distance line through a point set, oriented along
// the direction of travel from the first point to the last.
type LineFit struct {
	Count int     `json:"count"`
	MeanX float64 `json:"mean_x"`
	MeanY float64 `json:"mean_y"`
	DirX  float64 `json:"dir_x"`
	DirY  float64 `json:"dir_y"`
	Angle float64 `json:"angle"` // atan2(DirY, DirX), radians

	// Segment endpoints: the extreme projections of the points onto the line.
	StartX float64 `json:"start_x"`
	StartY float64 `json:"start_y"`
	EndX   float64 `json:"end_x"`
	EndY   float64 `json:"end_y"`

	Distances     []float64 `json:"distances"`      // perpendicular, >= 0
	HeadingErrors []float64 `json:"heading_errors"` // theta - Angle, wrapped to (-pi, pi]
	DistanceStats Summary   `json:"distance_stats"`
	HeadingStats  Summary   `json:"heading_stats"`
}

// FitLine fits a line to (xs[i], ys[i]) by principal component analysis and
// scores each point's perpendicular distance and heading error against it.
func FitLine(xs, ys, thetas []float64) (LineFit, error) {
	n := len(xs)
	if len(ys) != n || len(thetas) != n {
		return LineFit{}, fmt.Errorf("column lengths differ: %d, %d, %d", n, len(ys), len(thetas))
	}
	if n < 2 {
		return LineFit{}, fmt.Errorf("%w: line fit needs at least 2 points, have %d", ErrInsufficientData, n)
	}

	fit := LineFit{Count: n, MeanX: stat.Mean(xs, nil), MeanY: stat.Mean(ys, nil)}
	dx, dy := principalAxis(xs, ys)

	// Eigenvectors have no inherent sign; follow the direction of travel.
	if dx*(xs[n-1]-xs[0])+dy*(ys[n-1]-ys[0]) < 0 {
		dx, dy = -dx, -dy
	}
	fit.DirX, fit.DirY = dx, dy
	fit.Angle = math.Atan2(dy, dx)

	nx, ny := -dy, dx
	fit.Distances = make([]float64, n)
	fit.HeadingErrors = make([]float64, n)
	tMin, tMax := math.Inf(1), math.Inf(-1)
	for i := range xs {
		cx, cy := xs[i]-fit.MeanX, ys[i]-fit.MeanY
		fit.Distances[i] = math.Abs(cx*nx + cy*ny)
		fit.HeadingErrors[i] = WrapAngle(thetas[i] - fit.Angle)
		t := cx*dx + cy*dy
		tMin = math.Min(tMin, t)
		tMax = math.Max(tMax, t)
	}
	fit.StartX, fit.StartY = fit.MeanX+tMin*dx, fit.MeanY+tMin*dy
	fit.EndX, fit.EndY = fit.MeanX+tMax*dx, fit.MeanY+tMax*dy

	var err error
	if fit.DistanceStats, err = Summarize(fit.Distances); err != nil {
		return LineFit{}, err
	}
	if fit.HeadingStats, err = Summarize(fit.HeadingErrors); err != nil {
		return LineFit{}, err
	}
	return fit, nil
}

// principalAxis returns the unit eigenvector of the larger eigenvalue of the
// point covariance.
func principalAxis(xs, ys []float64) (float64, float64) {
	n := len(xs)
	pts := mat.NewDense(n, 2, nil)
	for i := range xs {
		pts.Set(i, 0, xs[i])
		pts.Set(i, 1, ys[i])
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, pts, nil)

	var eig mat.EigenSym
	if ok := eig.Factorize(&cov, true); ok {
		var vecs mat.Dense
		eig.VectorsTo(&vecs)
		// Eigenvalues are ascending, so column 1 belongs to the larger one.
		dx, dy := vecs.At(0, 1), vecs.At(1, 1)
		if norm := math.Hypot(dx, dy); norm > 0 {
			return dx / norm, dy / norm
		}
	}
	return closedFormAxis(cov.At(0, 0), cov.At(0, 1), cov.At(1, 1))
}

// closedFormAxis solves the 2x2 symmetric eigenproblem analytically.
func closedFormAxis(c00, c01, c11 float64) (float64, float64) {
	if math.Abs(c01) <= covarianceEpsilon {
		if c00 >= c11 {
			return 1, 0
		}
		return 0, 1
	}
	trace := c00 + c11
	disc := math.Max(trace*trace-4*(c00*c11-c01*c01), 0)
	lambda := (trace + math.Sqrt(disc)) / 2
	ex, ey := c01, lambda-c00
	mag := math.Hypot(ex, ey)
	return ex / mag, ey / mag
}

// WrapAngle maps a to the interval (-pi, pi].
func WrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	a -= math.Pi
	if a <= -math.Pi {
		return math.Pi
	}
	return a
}
