package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/banshee-data/pose.report/internal/analysis"
	"github.com/banshee-data/pose.report/internal/poselog"
	"github.com/banshee-data/pose.report/internal/storage/sqlite"
	"github.com/banshee-data/pose.report/internal/trajectory"
)

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func printTable(w io.Writer, t table.Writer) {
	fmt.Fprintln(w, t.Render())
}

func f4(v float64) string { return fmt.Sprintf("%.4f", v) }

func printTrajectories(w io.Writer, store *trajectory.Store) {
	t := newTable("Trajectories")
	t.AppendHeader(table.Row{"#", "File", "Poses", "Offset", "First", "Last", "Seconds", "Types", "Landmarks"})
	for i, traj := range store.Trajectories() {
		poses := traj.Poses()
		off, _ := store.GlobalOffset(traj.Name())
		t.AppendRow(table.Row{
			i,
			traj.Name(),
			traj.Len(),
			off,
			poses[0].Timestamp,
			poses[len(poses)-1].Timestamp,
			len(trajectory.UniqueTimes(poses)),
			joinInts(trajectory.UniqueTypes(poses)),
			landmarkCounts(store, traj.Name()),
		})
	}
	for _, name := range store.LandmarkFiles() {
		if _, err := store.Trajectory(name); err == nil {
			continue
		}
		t.AppendRow(table.Row{"-", name, 0, "-", "", "", 0, "", landmarkCounts(store, name)})
	}
	st := store.Stats()
	t.AppendFooter(table.Row{"", "total", store.Len(), "", "", "", "", "", st.Landmarks})
	printTable(w, t)
	fmt.Fprintf(w, "files scanned %d, skipped %d; lines read %d, pose lines skipped %d\n",
		st.FilesScanned, st.FilesSkipped, st.LinesRead, st.LinesSkipped)
}

// printTimes lists the window bounds each trajectory offers.
func printTimes(w io.Writer, store *trajectory.Store) {
	t := newTable("Selectable times")
	t.AppendHeader(table.Row{"File", "Times"})
	for _, traj := range store.Trajectories() {
		times := trajectory.UniqueTimes(traj.Poses())
		parts := make([]string, len(times))
		for i, tm := range times {
			parts[i] = tm.Format(poselog.TimestampLayout)
		}
		t.AppendRow(table.Row{traj.Name(), strings.Join(parts, "\n")})
	}
	printTable(w, t)
}

func landmarkCounts(store *trajectory.Store, name string) string {
	lms := store.Landmarks(name)
	keys := make([]string, 0, len(lms))
	for kw, found := range lms {
		if len(found) > 0 {
			keys = append(keys, kw)
		}
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, kw := range keys {
		parts[i] = fmt.Sprintf("%s=%d", kw, len(lms[kw]))
	}
	return strings.Join(parts, " ")
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ",")
}

func printStaticSummary(w io.Writer, s analysis.StaticPose) {
	t := newTable(fmt.Sprintf("Static pose (%d samples)", s.Count))
	t.AppendHeader(table.Row{"Axis", "Max", "Min", "Mean", "Range", "Std"})
	for _, row := range []struct {
		name string
		a    analysis.AxisSummary
	}{{"X", s.X}, {"Y", s.Y}, {"RZ", s.Theta}} {
		t.AppendRow(table.Row{row.name, f4(row.a.Max), f4(row.a.Min), f4(row.a.Mean), f4(row.a.Range), f4(row.a.Std)})
	}
	printTable(w, t)
}

func summaryRow(name string, s analysis.Summary) table.Row {
	return table.Row{name, s.Count, f4(s.Max), f4(s.Min), f4(s.Mean), f4(s.Std), f4(s.RMSE)}
}

var summaryHeader = table.Row{"Metric", "N", "Max", "Min", "Mean", "Std", "RMSE"}

func printLineFit(w io.Writer, fit analysis.LineFit) {
	t := newTable(fmt.Sprintf("Line fit (%d poses)", fit.Count))
	t.AppendRow(table.Row{"Centroid", fmt.Sprintf("(%s, %s)", f4(fit.MeanX), f4(fit.MeanY))})
	t.AppendRow(table.Row{"Direction", fmt.Sprintf("(%s, %s)", f4(fit.DirX), f4(fit.DirY))})
	t.AppendRow(table.Row{"Angle (rad)", f4(fit.Angle)})
	t.AppendRow(table.Row{"Start", fmt.Sprintf("(%s, %s)", f4(fit.StartX), f4(fit.StartY))})
	t.AppendRow(table.Row{"End", fmt.Sprintf("(%s, %s)", f4(fit.EndX), f4(fit.EndY))})
	printTable(w, t)

	s := newTable("Deviation from line")
	s.AppendHeader(summaryHeader)
	s.AppendRow(summaryRow("distance (m)", fit.DistanceStats))
	s.AppendRow(summaryRow("heading (rad)", fit.HeadingStats))
	printTable(w, s)
}

func printErrorReport(w io.Writer, rep analysis.ErrorReport) {
	t := newTable(fmt.Sprintf("%s vs %s", rep.Estimate, rep.Reference))
	t.AppendHeader(summaryHeader)
	t.AppendRow(summaryRow("APE (m)", rep.APEStats))
	t.AppendRow(summaryRow(fmt.Sprintf("RPE step %d (m)", rep.Step), rep.RPEStats))
	printTable(w, t)
	if rep.Truncated {
		fmt.Fprintf(w, "compared first %d samples (reference %d, estimate %d)\n", rep.Compared, rep.RefLen, rep.EstLen)
	}
}

func printStep(w io.Writer, st analysis.Step, maxLen int) {
	t := newTable(fmt.Sprintf("Cursor %d of %d", st.Cursor, maxLen))
	t.AppendHeader(table.Row{"Trajectory", "Index", "X", "Y", "Theta", "Offset (m)"})
	r := st.Reference
	t.AppendRow(table.Row{r.Name + " (ref)", r.Index, f4(r.X), f4(r.Y), f4(r.Theta), "-"})
	for _, o := range st.Offsets {
		t.AppendRow(table.Row{o.Name, o.Index, f4(o.X), f4(o.Y), f4(o.Theta), f4(o.Distance)})
	}
	printTable(w, t)
}

func printRuns(w io.Writer, runs []*sqlite.AnalysisRun) {
	t := newTable("Analysis runs")
	t.AppendHeader(table.Row{"Run ID", "Kind", "Source", "Created"})
	for _, r := range runs {
		t.AppendRow(table.Row{r.RunID, r.Kind, r.Source, time.Unix(0, r.CreatedAt).UTC().Format(time.RFC3339)})
	}
	printTable(w, t)
}
