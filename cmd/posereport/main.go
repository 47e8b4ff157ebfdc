// Command posereport loads robot localization logs and analyses the
// trajectories they contain.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type command struct {
	name    string
	summary string
	run     func(args []string, stdout, stderr io.Writer) error
}

var commands []command

func init() {
	commands = []command{
		{"load", "Scan the log directory and list trajectories", handleLoad},
		{"stats", "Static pose statistics over a time window", handleStats},
		{"linefit", "Fit a line through a time window and score heading", handleLineFit},
		{"evaluate", "APE and RPE of an estimate against a reference", handleEvaluate},
		{"step", "Per-frame offset of estimates from a reference", handleStep},
		{"frame", "Show one frame of the merged timeline", handleFrame},
		{"nearest", "Find the pose nearest to a point", handleNearest},
		{"export", "Export an index range of poses", handleExport},
		{"plot", "Draw trajectories and landmarks to PNG or HTML", handlePlot},
		{"runs", "List persisted analysis runs", handleRuns},
		{"migrate", "Show or roll back the run database schema", handleMigrate},
		{"serve", "Serve the analysis API and charts over HTTP", handleServe},
		{"version", "Show posereport version", handleVersion},
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}
	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage(stdout)
		return 0
	}
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(args[1:], stdout, stderr); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return 0
			}
			fmt.Fprintf(stderr, "%s: %v\n", name, err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(stderr, "Unknown command: %s\n\n", name)
	printUsage(stderr)
	return 1
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `posereport - trajectory analysis for robot localization logs

Usage: posereport <command> [options]

Commands:`)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w, `  help      Show this help message

Common Flags:
  -config <file>   Analyzer config (JSON). Defaults apply when omitted
  -root <dir>      Override root_dir from the config
  -logs <dir>      Override log_dir from the config
  -v               Log per-file parse summaries
  -vv              Also log every skipped line

Window Flags (stats, linefit):
  -from, -to       Inclusive time bounds, "YYYY-MM-DD HH:MM:SS[,mmm]"
  -type <n>        Keep only this localization type code
  -names a,b       Restrict to these log files

Examples:
  posereport load -root ./session1
  posereport linefit -from "2024-01-02 03:04:05" -to "2024-01-02 03:05:00" -type 1
  posereport evaluate -ref ref.log -est est.log -step 5 -png out/ape.png
  posereport serve -listen :8080`)
}
