package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a series of errors. Std is the population standard
// deviation. MAE is the mean of absolute values, so it equals Mean for
// non-negative series.
type Summary struct {
	Count int     `json:"count"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
	Mean  float64 `json:"mean"`
	MAE   float64 `json:"mae"`
	Std   float64 `json:"std"`
	RMSE  float64 `json:"rmse"`
}

// Summarize computes a Summary over values.
func Summarize(values []float64) (Summary, error) {
	n := len(values)
	if n == 0 {
		return Summary{}, fmt.Errorf("%w: empty series", ErrInsufficientData)
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	abs := make([]float64, n)
	for i, v := range values {
		abs[i] = math.Abs(v)
	}
	return Summary{
		Count: n,
		Max:   floats.Max(values),
		Min:   floats.Min(values),
		Mean:  mean,
		MAE:   stat.Mean(abs, nil),
		Std:   std,
		RMSE:  math.Sqrt(floats.Dot(values, values) / float64(n)),
	}, nil
}

// AxisSummary is the static spread of one pose axis.
type AxisSummary struct {
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
	Mean  float64 `json:"mean"`
	Range float64 `json:"range"`
	Std   float64 `json:"std"` // sample standard deviation, 0 for one sample
}

// StaticPose summarises how much a nominally stationary pose wanders.
type StaticPose struct {
	Count int         `json:"count"`
	X     AxisSummary `json:"x"`
	Y     AxisSummary `json:"y"`
	Theta AxisSummary `json:"theta"`
}

// StaticSummary computes per-axis spread over a pose set.
func StaticSummary(xs, ys, thetas []float64) (StaticPose, error) {
	if len(xs) == 0 {
		return StaticPose{}, fmt.Errorf("%w: no poses", ErrInsufficientData)
	}
	if len(ys) != len(xs) || len(thetas) != len(xs) {
		return StaticPose{}, fmt.Errorf("column lengths differ: %d, %d, %d", len(xs), len(ys), len(thetas))
	}
	return StaticPose{
		Count: len(xs),
		X:     axisSummary(xs),
		Y:     axisSummary(ys),
		Theta: axisSummary(thetas),
	}, nil
}

func axisSummary(v []float64) AxisSummary {
	s := AxisSummary{
		Max:  floats.Max(v),
		Min:  floats.Min(v),
		Mean: stat.Mean(v, nil),
	}
	s.Range = s.Max - s.Min
	if len(v) > 1 {
		s.Std = stat.StdDev(v, nil)
	}
	return s
}
