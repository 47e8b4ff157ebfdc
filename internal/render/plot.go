package render

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/pose.report/internal/analysis"
)

const (
	mapWidth    = 10 * vg.Inch
	mapHeight   = 10 * vg.Inch
	errorWidth  = 14 * vg.Inch
	errorHeight = 6 * vg.Inch
)

func toXYs(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return pts
}

func newMapPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p
}

func writePNG(p *plot.Plot, w io.Writer, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// WriteTrajectoryPNG draws each series as a path with its landmarks overlaid.
func WriteTrajectoryPNG(w io.Writer, title string, series []Series, marks []Marks) error {
	p := newMapPlot(title)
	colors := palette(len(series))
	drawn := 0
	for i, s := range series {
		if s.empty() {
			continue
		}
		line, err := plotter.NewLine(toXYs(s.XS, s.YS))
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Name, err)
		}
		line.Color = rgba(colors[i])
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Name, line)
		drawn++
	}
	for _, m := range marks {
		if len(m.XS) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(toXYs(m.XS, m.YS))
		if err != nil {
			return fmt.Errorf("landmarks %q: %w", m.Keyword, err)
		}
		sc.GlyphStyle = draw.GlyphStyle{
			Color:  rgba(parseColor(m.Style.Color, landmarkDefault)),
			Radius: vg.Points(4),
			Shape:  glyphShape(m.Style.Symbol),
		}
		p.Add(sc)
		p.Legend.Add(m.Keyword, sc)
		drawn++
	}
	if drawn == 0 {
		return ErrNoData
	}
	return writePNG(p, w, mapWidth, mapHeight)
}

// WriteLineFitPNG draws the fitted points, the fit segment and its start
// and end markers.
func WriteLineFitPNG(w io.Writer, title string, xs, ys []float64, fit analysis.LineFit) error {
	if len(xs) == 0 || len(xs) != len(ys) {
		return ErrNoData
	}
	p := newMapPlot(title)

	pts, err := plotter.NewScatter(toXYs(xs, ys))
	if err != nil {
		return fmt.Errorf("points: %w", err)
	}
	pts.GlyphStyle = draw.GlyphStyle{
		Color:  color.RGBA{R: 31, G: 119, B: 180, A: 255},
		Radius: vg.Points(2),
		Shape:  draw.CircleGlyph{},
	}

	seg, err := plotter.NewLine(plotter.XYs{{X: fit.StartX, Y: fit.StartY}, {X: fit.EndX, Y: fit.EndY}})
	if err != nil {
		return fmt.Errorf("fit segment: %w", err)
	}
	seg.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	seg.Width = vg.Points(2)

	ends := func(x, y float64, c color.Color) (*plotter.Scatter, error) {
		sc, err := plotter.NewScatter(plotter.XYs{{X: x, Y: y}})
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle = draw.GlyphStyle{Color: c, Radius: vg.Points(5), Shape: draw.CircleGlyph{}}
		return sc, nil
	}
	start, err := ends(fit.StartX, fit.StartY, color.RGBA{G: 160, A: 255})
	if err != nil {
		return fmt.Errorf("start marker: %w", err)
	}
	end, err := ends(fit.EndX, fit.EndY, color.RGBA{R: 200, B: 200, A: 255})
	if err != nil {
		return fmt.Errorf("end marker: %w", err)
	}

	p.Add(pts, seg, start, end)
	p.Legend.Add("poses", pts)
	p.Legend.Add(fmt.Sprintf("fit %.3f rad", fit.Angle), seg)
	p.Legend.Add("start", start)
	p.Legend.Add("end", end)
	return writePNG(p, w, mapWidth, mapHeight)
}

// WriteErrorPNG plots APE and RPE against frame index.
func WriteErrorPNG(w io.Writer, rep analysis.ErrorReport) error {
	if len(rep.APE) == 0 {
		return ErrNoData
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs %s", rep.Estimate, rep.Reference)
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Error (m)"
	p.Add(plotter.NewGrid())

	add := func(label string, values []float64, c color.Color) error {
		if len(values) == 0 {
			return nil
		}
		pts := make(plotter.XYs, len(values))
		for i, v := range values {
			pts[i] = plotter.XY{X: float64(i), Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		line.Color = c
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(label, line)
		return nil
	}
	if err := add("APE", rep.APE, color.RGBA{R: 31, G: 119, B: 180, A: 255}); err != nil {
		return err
	}
	if err := add(fmt.Sprintf("RPE (step %d)", rep.Step), rep.RPE, color.RGBA{R: 255, G: 127, B: 14, A: 255}); err != nil {
		return err
	}
	p.Legend.Top = true
	return writePNG(p, w, errorWidth, errorHeight)
}
