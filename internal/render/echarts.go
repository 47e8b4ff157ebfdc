package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// DefaultAssetsHost serves the echarts javascript.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// PageOptions configures WriteTrajectoryPage.
type PageOptions struct {
	Title      string
	Subtitle   string
	AssetsHost string // DefaultAssetsHost when empty

	// Cursor highlights one pose, typically the current replay frame.
	Cursor *Point
}

// Point is a single highlighted position.
type Point struct {
	Label string
	X, Y  float64
}

func (o PageOptions) assetsHost() string {
	if o.AssetsHost == "" {
		return DefaultAssetsHost
	}
	return o.AssetsHost
}

// TrajectoryChart builds an interactive scatter of every series and landmark set.
func TrajectoryChart(series []Series, marks []Marks, o PageOptions) *charts.Scatter {
	total := 0
	for _, s := range series {
		total += len(s.XS)
	}
	title := o.Title
	if title == "" {
		title = "Trajectories"
	}
	subtitle := o.Subtitle
	if subtitle == "" {
		subtitle = fmt.Sprintf("files=%d poses=%d", len(series), total)
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px", AssetsHost: o.assetsHost()}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)

	colors := palette(len(series))
	for i, s := range series {
		if s.empty() {
			continue
		}
		pts := make([]opts.ScatterData, len(s.XS))
		for j := range s.XS {
			pts[j] = opts.ScatterData{Value: []interface{}{s.XS[j], s.YS[j], j}}
		}
		scatter.AddSeries(s.Name, pts,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: colors[i].Hex()}))
	}
	for _, m := range marks {
		if len(m.XS) == 0 {
			continue
		}
		symbol := chartSymbol(m.Style.Symbol)
		pts := make([]opts.ScatterData, len(m.XS))
		for j := range m.XS {
			pts[j] = opts.ScatterData{Value: []interface{}{m.XS[j], m.YS[j]}, Symbol: symbol}
		}
		scatter.AddSeries(m.Keyword, pts,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: parseColor(m.Style.Color, landmarkDefault).Hex()}))
	}
	if c := o.Cursor; c != nil {
		label := c.Label
		if label == "" {
			label = "cursor"
		}
		scatter.AddSeries(label, []opts.ScatterData{{Value: []interface{}{c.X, c.Y}, Symbol: "pin"}},
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 20}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff0000"}))
	}
	return scatter
}

// WriteTrajectoryPage renders a standalone HTML page holding the trajectory chart.
func WriteTrajectoryPage(w io.Writer, series []Series, marks []Marks, o PageOptions) error {
	drawn := 0
	for _, s := range series {
		if !s.empty() {
			drawn++
		}
	}
	for _, m := range marks {
		if len(m.XS) > 0 {
			drawn++
		}
	}
	if drawn == 0 {
		return ErrNoData
	}

	page := components.NewPage()
	page.SetAssetsHost(o.assetsHost())
	page.AddCharts(TrajectoryChart(series, marks, o))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render trajectory page: %w", err)
	}
	return nil
}
