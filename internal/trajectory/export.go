package trajectory

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/pose.report/internal/fsutil"
	"github.com/banshee-data/pose.report/internal/poselog"
)

const missingField = "--"

// WriteExport writes one "timestamp state type x y theta" line per pose.
func WriteExport(w io.Writer, poses []poselog.Pose) error {
	bw := bufio.NewWriter(w)
	for _, p := range poses {
		if _, err := fmt.Fprintf(bw, "%s %s %d %.6f %.6f %.6f\n",
			orMissing(p.Timestamp), orMissing(p.State), p.Type, p.X, p.Y, p.Theta); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func orMissing(s string) string {
	if s == "" {
		return missingField
	}
	return s
}

var fileNameReplacer = strings.NewReplacer(":", "", " ", "_", ",", "")

// ExportFileName names an export by the timestamps of its first and last
// poses, falling back to "idx<N>" when a timestamp is missing.
func ExportFileName(poses []poselog.Pose, r Range) string {
	stamp := func(i int) string {
		if ts := poses[i].Timestamp; ts != "" {
			return fileNameReplacer.Replace(ts)
		}
		return fmt.Sprintf("idx%d", i)
	}
	return fmt.Sprintf("export_traj_%s_to_%s.txt", stamp(r.Start), stamp(r.End))
}

// ExportRange writes the poses selected by r into outDir and returns the
// written path.
func ExportRange(fsys fsutil.FileSystem, outDir string, poses []poselog.Pose, r Range) (string, error) {
	if r.Start < 0 || r.End >= len(poses) || r.Start > r.End {
		return "", fmt.Errorf("%w: export range [%d, %d] over %d poses", ErrInvalidSelection, r.Start, r.End, len(poses))
	}
	if err := fsys.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	name := filepath.Join(outDir, ExportFileName(poses, r))
	f, err := fsys.Create(name)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := WriteExport(f, r.Slice(poses)); err != nil {
		f.Close()
		return "", fmt.Errorf("write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return name, nil
}
