package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
)

// handleMigrate reports on or rolls back the run database schema. Opening
// the database already applies pending migrations, so "up" only confirms it.
func handleMigrate(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("migrate", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	action := "status"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}
	switch action {
	case "status", "up", "down":
	default:
		return fmt.Errorf("unknown migrate action %q, want status, up or down", action)
	}

	cfg, err := common.setup(stderr)
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("database_path is not configured")
	}
	defer db.Close()

	switch action {
	case "up":
		fmt.Fprintln(stdout, "✓ All migrations applied successfully")
	case "down":
		if err := db.MigrateDown(); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "✓ Rolled back one migration")
	}

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		return err
	}
	t := newTable("Schema")
	t.AppendRow(table.Row{"Path", db.Path()})
	t.AppendRow(table.Row{"Version", version})
	t.AppendRow(table.Row{"Dirty", dirty})
	if action != "down" {
		counts, err := db.Runs().CountByKind()
		if err != nil {
			return err
		}
		kinds := make([]string, 0, len(counts))
		for k := range counts {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			t.AppendRow(table.Row{"Runs (" + k + ")", counts[k]})
		}
	}
	printTable(stdout, t)
	return nil
}
