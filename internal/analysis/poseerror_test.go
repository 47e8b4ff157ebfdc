package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_EndToEnd(t *testing.T) {
	ref := traj("ref", [3]float64{0, 0, 0}, [3]float64{1, 0, 0}, [3]float64{2, 0, 0})
	est := traj("est", [3]float64{0, 0, 0}, [3]float64{1, 0.1, 0}, [3]float64{2, 0.1, 0})

	rep, err := Evaluate(ref, est, EvalOptions{})
	require.NoError(t, err)

	assert.Equal(t, "ref", rep.Reference)
	assert.Equal(t, "est", rep.Estimate)
	assert.Equal(t, 3, rep.Compared)
	assert.False(t, rep.Truncated)
	assert.Equal(t, 1, rep.Step)

	assert.InDeltaSlice(t, []float64{0, 0.1, 0.1}, rep.APE, 1e-12)
	assert.InDelta(t, math.Sqrt(0.02/3), rep.APEStats.RMSE, 1e-12)
	assert.InDelta(t, 0.0816, rep.APEStats.RMSE, 1e-4)
	assert.InDelta(t, 0.1, rep.APEStats.Max, 1e-12)
	assert.InDelta(t, 0.0, rep.APEStats.Min, 1e-12)

	assert.InDeltaSlice(t, []float64{0.1, 0}, rep.RPE, 1e-12)
	assert.InDelta(t, 0.05, rep.RPEStats.Mean, 1e-12)
	assert.InDelta(t, 0.05, rep.RPEStats.Std, 1e-12)
}

func TestEvaluate_SelfComparisonIsZero(t *testing.T) {
	ref := traj("ref",
		[3]float64{0, 0, 0.3},
		[3]float64{1, 0.5, 0.7},
		[3]float64{1.5, 2, 1.2},
		[3]float64{0.5, 3, 2.5},
	)
	rep, err := Evaluate(ref, ref, EvalOptions{})
	require.NoError(t, err)

	for _, s := range []Summary{rep.APEStats, rep.RPEStats} {
		assert.Equal(t, 0.0, s.RMSE)
		assert.Equal(t, 0.0, s.Mean)
		assert.Equal(t, 0.0, s.Max)
		assert.Equal(t, 0.0, s.Min)
		assert.Equal(t, 0.0, s.Std)
	}
	assert.Len(t, rep.RPE, 3)
}

func TestEvaluate_LocalFrameRotation(t *testing.T) {
	// Both move one metre forward in their own frame with different headings,
	// so the global drift is large but the local motion is identical.
	ref := traj("ref", [3]float64{0, 0, 0}, [3]float64{1, 0, 0})
	est := traj("est", [3]float64{5, 5, math.Pi / 2}, [3]float64{5, 6, math.Pi / 2})

	rep, err := Evaluate(ref, est, EvalOptions{})
	require.NoError(t, err)
	assert.Greater(t, rep.APEStats.Min, 7.0)
	assert.InDelta(t, 0, rep.RPE[0], 1e-12)
}

func TestEvaluate_Truncates(t *testing.T) {
	ref := traj("ref", [3]float64{0, 0, 0}, [3]float64{1, 0, 0}, [3]float64{2, 0, 0}, [3]float64{3, 0, 0})
	est := traj("est", [3]float64{0, 1, 0}, [3]float64{1, 1, 0})

	rep, err := Evaluate(ref, est, EvalOptions{})
	require.NoError(t, err)
	assert.True(t, rep.Truncated)
	assert.Equal(t, 4, rep.RefLen)
	assert.Equal(t, 2, rep.EstLen)
	assert.Equal(t, 2, rep.Compared)
	assert.Len(t, rep.APE, 2)
	assert.Len(t, rep.RPE, 1)
}

func TestEvaluate_VariableStep(t *testing.T) {
	ref := traj("ref", [3]float64{0, 0, 0}, [3]float64{1, 0, 0}, [3]float64{2, 0, 0}, [3]float64{3, 0, 0})
	est := traj("est", [3]float64{0, 0, 0}, [3]float64{1, 0, 0}, [3]float64{2, 0.2, 0}, [3]float64{3, 0.2, 0})

	rep, err := Evaluate(ref, est, EvalOptions{Step: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Step)
	assert.InDeltaSlice(t, []float64{0.2, 0.2}, rep.RPE, 1e-12)

	_, err = Evaluate(ref, est, EvalOptions{Step: 4})
	assert.ErrorIs(t, err, ErrInsufficientData)
	_, err = Evaluate(ref, est, EvalOptions{Step: -1})
	assert.Error(t, err)
}

func TestEvaluate_InsufficientData(t *testing.T) {
	one := traj("one", [3]float64{0, 0, 0})
	two := traj("two", [3]float64{0, 0, 0}, [3]float64{1, 0, 0})

	_, err := Evaluate(one, two, EvalOptions{})
	assert.ErrorIs(t, err, ErrInsufficientData)
	_, err = Evaluate(two, cols{name: "empty"}, EvalOptions{})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestStepAt(t *testing.T) {
	ref := traj("ref", [3]float64{0, 0, 0}, [3]float64{1, 0, 0}, [3]float64{2, 0, 0})
	short := traj("short", [3]float64{0, 3, 0}, [3]float64{1, 4, 0})
	long := traj("long", [3]float64{0, 0, 0}, [3]float64{1, 0, 0}, [3]float64{2, 0, 0}, [3]float64{3, 4, 0})

	st, err := StepAt(3, ref, short, long)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Cursor)
	assert.Equal(t, 2, st.Reference.Index)
	require.Len(t, st.Offsets, 2)
	assert.Equal(t, 1, st.Offsets[0].Index)
	assert.InDelta(t, math.Hypot(1, 4), st.Offsets[0].Distance, 1e-12)
	assert.Equal(t, 3, st.Offsets[1].Index)
	assert.InDelta(t, math.Hypot(1, 4), st.Offsets[1].Distance, 1e-12)

	st, err = StepAt(-5, ref, short)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Cursor)
	assert.InDelta(t, 3.0, st.Offsets[0].Distance, 1e-12)

	_, err = StepAt(0, ref, cols{name: "empty"})
	assert.ErrorIs(t, err, ErrInsufficientData)

	assert.Equal(t, 4, MaxLen(ref, short, long))
}
