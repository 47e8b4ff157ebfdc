package trajectory

import "github.com/banshee-data/pose.report/internal/poselog"

// Trajectory is a named, ordered pose sequence with parallel column views.
// len(Poses()) == len(XS()) == len(YS()) == len(Thetas()) always holds.
type Trajectory struct {
	name   string
	poses  []poselog.Pose
	xs     []float64
	ys     []float64
	thetas []float64
}

// New builds a trajectory from a copy of poses.
func New(name string, poses []poselog.Pose) *Trajectory {
	t := &Trajectory{
		name:   name,
		poses:  append([]poselog.Pose(nil), poses...),
		xs:     make([]float64, len(poses)),
		ys:     make([]float64, len(poses)),
		thetas: make([]float64, len(poses)),
	}
	for i, p := range poses {
		t.xs[i] = p.X
		t.ys[i] = p.Y
		t.thetas[i] = p.Theta
	}
	return t
}

func (t *Trajectory) Name() string { return t.name }
func (t *Trajectory) Len() int     { return len(t.poses) }

// Poses returns the pose sequence. The slice is shared; do not modify it.
func (t *Trajectory) Poses() []poselog.Pose { return t.poses }

// Pose returns the i'th pose.
func (t *Trajectory) Pose(i int) poselog.Pose { return t.poses[i] }

func (t *Trajectory) XS() []float64     { return t.xs }
func (t *Trajectory) YS() []float64     { return t.ys }
func (t *Trajectory) Thetas() []float64 { return t.thetas }
