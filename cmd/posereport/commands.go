package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/pose.report/internal/analysis"
	"github.com/banshee-data/pose.report/internal/config"
	"github.com/banshee-data/pose.report/internal/poselog"
	"github.com/banshee-data/pose.report/internal/render"
	"github.com/banshee-data/pose.report/internal/storage/sqlite"
	"github.com/banshee-data/pose.report/internal/trajectory"
	"github.com/banshee-data/pose.report/internal/version"
)

func handleVersion(args []string, stdout, stderr io.Writer) error {
	fmt.Fprintln(stdout, version.String("posereport"))
	return nil
}

func handleLoad(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("load", stderr)
	times := fs.Bool("times", false, "Also list each trajectory's distinct whole-second times")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.setup(stderr)
	if err != nil {
		return err
	}
	store, err := loadStore(cfg, newFileSystem())
	if err != nil {
		return err
	}
	printTrajectories(stdout, store)
	if *times {
		printTimes(stdout, store)
	}
	return nil
}

// recordRun stores a result when a database is configured.
func recordRun(cfg *config.AnalyzerConfig, kind, source string, params, result interface{}, stderr io.Writer) error {
	db, err := openDB(cfg)
	if err != nil || db == nil {
		return err
	}
	defer db.Close()

	pj, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	rj, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	run := &sqlite.AnalysisRun{Kind: kind, Source: source, ParamsJSON: pj, ResultJSON: rj}
	if err := db.Runs().Insert(run); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "saved %s run %s\n", kind, run.RunID)
	return nil
}

type windowParams struct {
	Names []string `json:"names,omitempty"`
	From  string   `json:"from,omitempty"`
	To    string   `json:"to,omitempty"`
	Type  *int     `json:"type,omitempty"`
}

func (w *windowFlags) params() windowParams {
	p := windowParams{Names: w.nameList(), From: *w.from, To: *w.to}
	if *w.typ >= 0 {
		typ := *w.typ
		p.Type = &typ
	}
	return p
}

func sourceOf(names []string) string {
	if len(names) == 0 {
		return "*"
	}
	return strings.Join(names, ",")
}

func handleStats(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("stats", stderr)
	win := addWindowFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.setup(stderr)
	if err != nil {
		return err
	}
	store, err := loadStore(cfg, newFileSystem())
	if err != nil {
		return err
	}
	sel, err := win.selection(store, stderr)
	if err != nil {
		return err
	}
	sum, err := analysis.StaticSummary(sel.XS(), sel.YS(), sel.Thetas())
	if err != nil {
		return err
	}
	printStaticSummary(stdout, sum)
	return recordRun(cfg, sqlite.KindSummary, sourceOf(win.nameList()), win.params(), sum, stderr)
}

func handleLineFit(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("linefit", stderr)
	win := addWindowFlags(fs)
	pngPath := fs.String("png", "", "Also draw the fit to this PNG file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.setup(stderr)
	if err != nil {
		return err
	}
	fsys := newFileSystem()
	store, err := loadStore(cfg, fsys)
	if err != nil {
		return err
	}
	sel, err := win.selection(store, stderr)
	if err != nil {
		return err
	}
	fit, err := analysis.FitLine(sel.XS(), sel.YS(), sel.Thetas())
	if err != nil {
		return err
	}
	printLineFit(stdout, fit)

	if *pngPath != "" {
		title := fmt.Sprintf("Line fit over %d poses", fit.Count)
		if err := writeOutput(fsys, *pngPath, func(w io.Writer) error {
			return render.WriteLineFitPNG(w, title, sel.XS(), sel.YS(), fit)
		}); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", *pngPath)
	}
	return recordRun(cfg, sqlite.KindLineFit, sourceOf(win.nameList()), win.params(), fit, stderr)
}

type comparisonFlags struct {
	ref  *string
	est  *string
	step *int
}

func addComparisonFlags(fs *flag.FlagSet) *comparisonFlags {
	return &comparisonFlags{
		ref:  fs.String("ref", "", "Reference trajectory (default from config)"),
		est:  fs.String("est", "", "Estimate trajectory (default from config)"),
		step: fs.Int("step", 0, "RPE frame step (default from config)"),
	}
}

func (c *comparisonFlags) resolve(cfg *config.AnalyzerConfig, store *trajectory.Store) (ref, est *trajectory.Trajectory, step int, err error) {
	refName, estName := *c.ref, *c.est
	if refName == "" {
		refName = cfg.GetReference()
	}
	if estName == "" {
		estName = cfg.GetEstimate()
	}
	if refName == "" || estName == "" {
		return nil, nil, 0, fmt.Errorf("-ref and -est are required")
	}
	if ref, err = store.Trajectory(refName); err != nil {
		return nil, nil, 0, err
	}
	if est, err = store.Trajectory(estName); err != nil {
		return nil, nil, 0, err
	}
	step = *c.step
	if step == 0 {
		step = cfg.GetRPEStep()
	}
	if step < 1 {
		return nil, nil, 0, fmt.Errorf("-step must be at least 1, got %d", step)
	}
	return ref, est, step, nil
}

func handleEvaluate(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("evaluate", stderr)
	cmp := addComparisonFlags(fs)
	pngPath := fs.String("png", "", "Also plot APE and RPE to this PNG file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.setup(stderr)
	if err != nil {
		return err
	}
	fsys := newFileSystem()
	store, err := loadStore(cfg, fsys)
	if err != nil {
		return err
	}
	ref, est, step, err := cmp.resolve(cfg, store)
	if err != nil {
		return err
	}
	rep, err := analysis.Evaluate(ref, est, analysis.EvalOptions{Step: step})
	if err != nil {
		return err
	}
	printErrorReport(stdout, rep)

	if *pngPath != "" {
		if err := writeOutput(fsys, *pngPath, func(w io.Writer) error {
			return render.WriteErrorPNG(w, rep)
		}); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", *pngPath)
	}
	params := map[string]interface{}{"reference": ref.Name(), "estimate": est.Name(), "step": step}
	return recordRun(cfg, sqlite.KindEvaluation, ref.Name()+","+est.Name(), params, rep, stderr)
}

func handleStep(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("step", stderr)
	refName := fs.String("ref", "", "Reference trajectory (default from config)")
	ests := fs.String("est", "", "Comma-separated estimate trajectories (default all others)")
	idx := fs.Int("idx", 0, "Cursor index")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.setup(stderr)
	if err != nil {
		return err
	}
	store, err := loadStore(cfg, newFileSystem())
	if err != nil {
		return err
	}
	name := *refName
	if name == "" {
		name = cfg.GetReference()
	}
	if name == "" {
		return fmt.Errorf("-ref is required")
	}
	ref, err := store.Trajectory(name)
	if err != nil {
		return err
	}
	trajs, err := store.Lookup(splitList(*ests))
	if err != nil {
		return err
	}
	cols := make([]analysis.PoseColumns, 0, len(trajs))
	for _, t := range trajs {
		if t.Name() != ref.Name() {
			cols = append(cols, t)
		}
	}
	st, err := analysis.StepAt(*idx, ref, cols...)
	if err != nil {
		return err
	}
	printStep(stdout, st, analysis.MaxLen(append([]analysis.PoseColumns{ref}, cols...)...))
	return nil
}

func handleNearest(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("nearest", stderr)
	x := fs.Float64("x", 0, "Query X")
	y := fs.Float64("y", 0, "Query Y")
	names := fs.String("names", "", "Comma-separated trajectories to search (default all)")
	threshold := fs.Float64("threshold", 0, "Maximum distance (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.setup(stderr)
	if err != nil {
		return err
	}
	store, err := loadStore(cfg, newFileSystem())
	if err != nil {
		return err
	}
	candidates, err := store.Lookup(splitList(*names))
	if err != nil {
		return err
	}
	limit := *threshold
	if limit <= 0 {
		limit = cfg.GetNearestThreshold()
	}
	m := analysis.Nearest(*x, *y, candidates, limit)
	if !m.Found {
		fmt.Fprintf(stdout, "no pose within %.3f of (%.3f, %.3f)\n", limit, *x, *y)
		return nil
	}
	global, err := store.GlobalIndex(m.Name, m.Index)
	if err != nil {
		return err
	}
	p := candidates[m.Candidate].Pose(m.Index)
	fmt.Fprintf(stdout, "%s[%d] frame %d at %.3f m: %s\n",
		m.Name, m.Index, global, m.Distance, describePose(p, cfg.GetRealTimeTag()))
	return nil
}

// describePose formats a pose for one-line output, marking real-time states.
func describePose(p poselog.Pose, realTimeTag string) string {
	state := p.State
	if state == "" {
		state = "-"
	}
	if p.IsRealTime(realTimeTag) {
		state += " [realtime]"
	}
	return fmt.Sprintf("%s (%.4f, %.4f, %.4f) type %d state %s",
		p.Timestamp, p.X, p.Y, p.Theta, p.Type, state)
}

func handleFrame(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("frame", stderr)
	idx := fs.Int("idx", 0, "Merged-timeline frame index (clamped)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.setup(stderr)
	if err != nil {
		return err
	}
	store, err := loadStore(cfg, newFileSystem())
	if err != nil {
		return err
	}
	f, err := store.Frame(*idx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "frame %d of %d, %s[%d]: %s\n",
		f.Index, store.Len(), f.Name, f.Local, describePose(f.Pose, cfg.GetRealTimeTag()))
	return nil
}

func handleExport(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("export", stderr)
	name := fs.String("name", "", "Trajectory to export from (default merged timeline)")
	start := fs.Int("start", 0, "First index, inclusive")
	end := fs.Int("end", -1, "Last index, inclusive (default last)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.setup(stderr)
	if err != nil {
		return err
	}
	fsys := newFileSystem()
	store, err := loadStore(cfg, fsys)
	if err != nil {
		return err
	}
	poses := store.Merged()
	if *name != "" {
		t, err := store.Trajectory(*name)
		if err != nil {
			return err
		}
		poses = t.Poses()
	}
	last := *end
	if last < 0 {
		last = len(poses) - 1
	}
	r, err := trajectory.SelectIndexRange(len(poses), *start, last)
	if err != nil {
		return err
	}
	if r.Adjusted {
		fmt.Fprintf(stderr, "note: %s\n", r.Note)
	}
	path, err := trajectory.ExportRange(fsys, cfg.OutPath(), poses, r)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported %d poses [%d, %d] to %s\n", r.Len(), r.Start, r.End, path)
	return nil
}

func handlePlot(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("plot", stderr)
	names := fs.String("names", "", "Comma-separated trajectories to draw (default all)")
	out := fs.String("out", "", "Output file, .png or .html (default <out_dir>/trajectories.html)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.setup(stderr)
	if err != nil {
		return err
	}
	fsys := newFileSystem()
	store, err := loadStore(cfg, fsys)
	if err != nil {
		return err
	}
	nameList := splitList(*names)
	trajs, err := store.Lookup(nameList)
	if err != nil {
		return err
	}
	series := make([]render.Series, len(trajs))
	for i, t := range trajs {
		series[i] = render.SeriesOf(t)
	}
	lms := store.AllLandmarks()
	if len(nameList) > 0 {
		lms = make(map[string][]poselog.Landmark)
		for _, name := range nameList {
			for kw, found := range store.Landmarks(name) {
				lms[kw] = append(lms[kw], found...)
			}
		}
	}
	marks := render.MarksOf(cfg.GetLandmarks(), lms)

	path := *out
	if path == "" {
		path = filepath.Join(cfg.OutPath(), "trajectories.html")
	}
	var write func(io.Writer) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		write = func(w io.Writer) error { return render.WriteTrajectoryPNG(w, "Trajectories", series, marks) }
	case ".html", ".htm":
		write = func(w io.Writer) error {
			return render.WriteTrajectoryPage(w, series, marks, render.PageOptions{Title: "Trajectories"})
		}
	default:
		return fmt.Errorf("unsupported output %q, want .png or .html", path)
	}
	if err := writeOutput(fsys, path, write); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", path)
	return nil
}

func handleRuns(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("runs", stderr)
	kind := fs.String("kind", "", "Only runs of this kind (linefit, evaluation, summary)")
	limit := fs.Int("limit", 20, "Maximum runs to list")
	show := fs.String("id", "", "Print one run's stored result as JSON")
	del := fs.String("delete", "", "Delete the run with this ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.setup(stderr)
	if err != nil {
		return err
	}
	if *kind != "" && !sqlite.ValidKind(*kind) {
		return fmt.Errorf("unknown kind %q", *kind)
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("database_path is not configured")
	}
	defer db.Close()
	runs := db.Runs()

	switch {
	case *del != "":
		if err := runs.Delete(*del); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted %s\n", *del)
	case *show != "":
		run, err := runs.Get(*show)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	default:
		list, err := runs.List(*kind, *limit)
		if err != nil {
			return err
		}
		printRuns(stdout, list)
	}
	return nil
}
