package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/banshee-data/pose.report/internal/api"
	"github.com/banshee-data/pose.report/internal/config"
	"github.com/banshee-data/pose.report/internal/fsutil"
	"github.com/banshee-data/pose.report/internal/poselog"
	"github.com/banshee-data/pose.report/internal/storage/sqlite"
	"github.com/banshee-data/pose.report/internal/trajectory"
)

// newFileSystem is the file system every command reads logs from and
// writes output to.
var newFileSystem = func() fsutil.FileSystem { return fsutil.OSFileSystem{} }

type commonFlags struct {
	configPath  *string
	root        *string
	logDir      *string
	verbose     *bool
	veryVerbose *bool
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := &commonFlags{
		configPath:  fs.String("config", "", "Analyzer config file (JSON)"),
		root:        fs.String("root", "", "Root directory (overrides root_dir)"),
		logDir:      fs.String("logs", "", "Log directory (overrides log_dir)"),
		verbose:     fs.Bool("v", false, "Log per-file parse summaries"),
		veryVerbose: fs.Bool("vv", false, "Log per-line skip reasons"),
	}
	return fs, c
}

// setup loads the config and routes the parser's log streams to stderr.
func (c *commonFlags) setup(stderr io.Writer) (*config.AnalyzerConfig, error) {
	var diag, trace io.Writer
	if *c.verbose || *c.veryVerbose {
		diag = stderr
	}
	if *c.veryVerbose {
		trace = stderr
	}
	poselog.SetLogWriters(stderr, diag, trace)
	log.SetOutput(stderr)
	api.SetLogger(log.Printf)

	cfg := config.DefaultAnalyzerConfig()
	if *c.configPath != "" {
		loaded, err := config.LoadAnalyzerConfig(*c.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if *c.root != "" {
		cfg.RootDir = c.root
	}
	if *c.logDir != "" {
		cfg.LogDir = c.logDir
	}
	return cfg, nil
}

// loadStore scans the configured log directory.
func loadStore(cfg *config.AnalyzerConfig, fsys fsutil.FileSystem) (*trajectory.Store, error) {
	store := trajectory.NewStore(cfg.GetStateKeyword())
	if _, err := store.LoadDir(fsys, cfg.LogPath(), cfg.GetLandmarks()); err != nil {
		return nil, err
	}
	return store, nil
}

// openDB opens the configured database. It returns nil when persistence is off.
func openDB(cfg *config.AnalyzerConfig) (*sqlite.DB, error) {
	path := cfg.GetDatabasePath()
	if path == "" {
		return nil, nil
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return db, nil
}

type windowFlags struct {
	from  *string
	to    *string
	typ   *int
	names *string
}

func addWindowFlags(fs *flag.FlagSet) *windowFlags {
	return &windowFlags{
		from:  fs.String("from", "", "Start time, inclusive"),
		to:    fs.String("to", "", "End time, inclusive"),
		typ:   fs.Int("type", -1, "Localization type code (-1 for any)"),
		names: fs.String("names", "", "Comma-separated log file names (default all)"),
	}
}

func (w *windowFlags) window() (trajectory.Window, error) {
	var win trajectory.Window
	var err error
	if win.From, err = trajectory.ParseTime(*w.from); err != nil {
		return win, err
	}
	if win.To, err = trajectory.ParseTime(*w.to); err != nil {
		return win, err
	}
	if *w.typ >= 0 {
		typ := *w.typ
		win.Type = &typ
	}
	return win, nil
}

func (w *windowFlags) nameList() []string { return splitList(*w.names) }

// selection merges, orders and filters the poses the window flags describe.
func (w *windowFlags) selection(store *trajectory.Store, stderr io.Writer) (*trajectory.Trajectory, error) {
	win, err := w.window()
	if err != nil {
		return nil, err
	}
	sel, err := store.SelectWindow(w.nameList(), win)
	if err != nil {
		return nil, err
	}
	if sel.Adjusted {
		fmt.Fprintf(stderr, "note: %s\n", sel.Note)
	}
	return trajectory.New("selection", sel.Poses), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// writeOutput creates path on fsys and hands it to write.
func writeOutput(fsys fsutil.FileSystem, path string, write func(io.Writer) error) error {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
