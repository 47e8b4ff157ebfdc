package analysis

import (
	"fmt"
	"math"
)

// PoseColumns adds headings to Columns.
type PoseColumns interface {
	Columns
	Thetas() []float64
}

// EvalOptions tunes Evaluate. The zero value uses a one-frame RPE step.
type EvalOptions struct {
	Step int // RPE frame step, >= 1
}

// ErrorReport compares an estimate against a reference by index. Samples
// past Compared are ignored; Truncated says whether any were.
type ErrorReport struct {
	Reference string    `json:"reference"`
	Estimate  string    `json:"estimate"`
	RefLen    int       `json:"ref_len"`
	EstLen    int       `json:"est_len"`
	Compared  int       `json:"compared"`
	Truncated bool      `json:"truncated"`
	Step      int       `json:"step"`
	APE       []float64 `json:"ape"`
	APEStats  Summary   `json:"ape_stats"`
	RPE       []float64 `json:"rpe"`
	RPEStats  Summary   `json:"rpe_stats"`
}

// Evaluate computes absolute and relative pose error between ref and est.
// The two are aligned strictly by index and truncated to the shorter one.
func Evaluate(ref, est PoseColumns, opts EvalOptions) (ErrorReport, error) {
	step := opts.Step
	if step == 0 {
		step = 1
	}
	if step < 0 {
		return ErrorReport{}, fmt.Errorf("rpe step must be >= 1, got %d", step)
	}

	rx, ry, rt := ref.XS(), ref.YS(), ref.Thetas()
	ex, ey, et := est.XS(), est.YS(), est.Thetas()
	n := min(len(rx), len(ex))
	if n < 2 {
		return ErrorReport{}, fmt.Errorf("%w: evaluation needs 2 aligned samples, have %d", ErrInsufficientData, n)
	}
	if n-step < 1 {
		return ErrorReport{}, fmt.Errorf("%w: rpe step %d leaves no pairs over %d samples", ErrInsufficientData, step, n)
	}

	rep := ErrorReport{
		Reference: ref.Name(),
		Estimate:  est.Name(),
		RefLen:    len(rx),
		EstLen:    len(ex),
		Compared:  n,
		Truncated: len(rx) != len(ex),
		Step:      step,
		APE:       make([]float64, n),
		RPE:       make([]float64, n-step),
	}
	for i := 0; i < n; i++ {
		rep.APE[i] = math.Hypot(rx[i]-ex[i], ry[i]-ey[i])
	}
	for i := 0; i+step < n; i++ {
		lrx, lry := localDisplacement(rx[i+step]-rx[i], ry[i+step]-ry[i], rt[i])
		lex, ley := localDisplacement(ex[i+step]-ex[i], ey[i+step]-ey[i], et[i])
		rep.RPE[i] = math.Hypot(lrx-lex, lry-ley)
	}

	var err error
	if rep.APEStats, err = Summarize(rep.APE); err != nil {
		return ErrorReport{}, err
	}
	if rep.RPEStats, err = Summarize(rep.RPE); err != nil {
		return ErrorReport{}, err
	}
	return rep, nil
}

// localDisplacement rotates a world-frame displacement by -theta.
func localDisplacement(dx, dy, theta float64) (float64, float64) {
	s, c := math.Sincos(theta)
	return c*dx + s*dy, -s*dx + c*dy
}

// StepPoint is one trajectory's pose under the replay cursor.
type StepPoint struct {
	Name  string  `json:"name"`
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// StepOffset is an estimate's pose under the cursor and its distance to the reference.
type StepOffset struct {
	StepPoint
	Distance float64 `json:"distance"`
}

// Step is the cursor view across a reference and any number of estimates.
type Step struct {
	Cursor    int          `json:"cursor"`
	Reference StepPoint    `json:"reference"`
	Offsets   []StepOffset `json:"offsets"`
}

// StepAt places a cursor at idx on every trajectory. Each trajectory clamps
// the cursor to its own last sample, so shorter ones hold their final pose.
func StepAt(idx int, ref PoseColumns, ests ...PoseColumns) (Step, error) {
	if idx < 0 {
		idx = 0
	}
	rp, err := stepPoint(ref, idx)
	if err != nil {
		return Step{}, err
	}
	st := Step{Cursor: idx, Reference: rp, Offsets: make([]StepOffset, 0, len(ests))}
	for _, est := range ests {
		ep, err := stepPoint(est, idx)
		if err != nil {
			return Step{}, err
		}
		st.Offsets = append(st.Offsets, StepOffset{
			StepPoint: ep,
			Distance:  math.Hypot(rp.X-ep.X, rp.Y-ep.Y),
		})
	}
	return st, nil
}

func stepPoint(c PoseColumns, idx int) (StepPoint, error) {
	xs, ys, ts := c.XS(), c.YS(), c.Thetas()
	if len(xs) == 0 {
		return StepPoint{}, fmt.Errorf("%w: %q has no poses", ErrInsufficientData, c.Name())
	}
	i := min(idx, len(xs)-1)
	return StepPoint{Name: c.Name(), Index: i, X: xs[i], Y: ys[i], Theta: ts[i]}, nil
}

// MaxLen is the cursor range needed to step through every trajectory.
func MaxLen(cs ...PoseColumns) int {
	n := 0
	for _, c := range cs {
		n = max(n, len(c.XS()))
	}
	return n
}
