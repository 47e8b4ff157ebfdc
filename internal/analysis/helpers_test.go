package analysis

type cols struct {
	name       string
	xs, ys, ts []float64
}

func (c cols) Name() string      { return c.name }
func (c cols) XS() []float64     { return c.xs }
func (c cols) YS() []float64     { return c.ys }
func (c cols) Thetas() []float64 { return c.ts }

func traj(name string, pts ...[3]float64) cols {
	c := cols{name: name}
	for _, p := range pts {
		c.xs = append(c.xs, p[0])
		c.ys = append(c.ys, p[1])
		c.ts = append(c.ts, p[2])
	}
	return c
}
