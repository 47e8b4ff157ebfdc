package render

import (
	"errors"
	"image/color"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/pose.report/internal/analysis"
	"github.com/banshee-data/pose.report/internal/poselog"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("render: no data to plot")

// Series is one named point sequence.
type Series struct {
	Name string
	XS   []float64
	YS   []float64
}

// SeriesOf copies the coordinate columns of c.
func SeriesOf(c analysis.Columns) Series {
	return Series{
		Name: c.Name(),
		XS:   append([]float64(nil), c.XS()...),
		YS:   append([]float64(nil), c.YS()...),
	}
}

// Marks are the landmarks of one keyword with their display style.
type Marks struct {
	Keyword string
	Style   poselog.DisplayStyle
	XS      []float64
	YS      []float64
}

// MarksOf groups landmarks by configured keyword, in configuration order.
// Keywords with no landmarks are left out.
func MarksOf(cfgs []poselog.LandmarkConfig, lms map[string][]poselog.Landmark) []Marks {
	var out []Marks
	for _, cfg := range cfgs {
		found := lms[cfg.Keyword]
		if len(found) == 0 {
			continue
		}
		m := Marks{Keyword: cfg.Keyword, Style: cfg.Style}
		for _, lm := range found {
			m.XS = append(m.XS, lm.X)
			m.YS = append(m.YS, lm.Y)
		}
		out = append(out, m)
	}
	return out
}

func (s Series) empty() bool { return len(s.XS) == 0 || len(s.XS) != len(s.YS) }

// shortColors maps single-letter color codes used in landmark configs.
var shortColors = map[string]string{
	"b": "#1f77b4",
	"g": "#2ca02c",
	"r": "#d62728",
	"c": "#17becf",
	"m": "#e377c2",
	"y": "#ffd700",
	"k": "#000000",
	"w": "#ffffff",
}

// parseColor accepts a single-letter code or a #rrggbb value. Anything else
// falls back to def.
func parseColor(s string, def colorful.Color) colorful.Color {
	s = strings.TrimSpace(strings.ToLower(s))
	if hex, ok := shortColors[s]; ok {
		s = hex
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return def
	}
	return c
}

// palette returns n evenly spaced hues.
func palette(n int) []colorful.Color {
	colors := make([]colorful.Color, n)
	for i := range colors {
		colors[i] = colorful.Hsl(360*float64(i)/float64(max(n, 1)), 0.7, 0.5)
	}
	return colors
}

func rgba(c colorful.Color) color.Color {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

var landmarkDefault = colorful.Color{R: 1, G: 0.5, B: 0}

// glyphShape maps a landmark symbol code to a plot glyph.
func glyphShape(symbol string) draw.GlyphDrawer {
	switch symbol {
	case "s", "square":
		return draw.SquareGlyph{}
	case "t", "t1", "^", "triangle":
		return draw.TriangleGlyph{}
	case "x":
		return draw.CrossGlyph{}
	case "+":
		return draw.PlusGlyph{}
	case "d", "diamond":
		return draw.PyramidGlyph{}
	default:
		return draw.CircleGlyph{}
	}
}

// chartSymbol maps a landmark symbol code to an echarts symbol name.
func chartSymbol(symbol string) string {
	switch symbol {
	case "s", "square":
		return "rect"
	case "t", "t1", "^", "triangle":
		return "triangle"
	case "d", "diamond":
		return "diamond"
	case "x", "+":
		return "pin"
	default:
		return "circle"
	}
}
