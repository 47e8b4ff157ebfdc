package poselog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Resolver is implemented by file systems that can map a name to its real
// on-disk path. ScanDir uses it to drop files reached through more than one name.
type Resolver interface {
	RealPath(name string) (string, error)
}

// FileResult holds everything parsed from one file.
type FileResult struct {
	Name      string // slash-separated path relative to the scan root
	Poses     []Pose
	Landmarks map[string][]Landmark // keyed by configured keyword
	LinesRead int
	Skipped   int // candidate pose lines that matched no grammar
}

// ScanStats summarises one directory scan.
type ScanStats struct {
	FilesScanned int `json:"files_scanned"`
	FilesSkipped int `json:"files_skipped"`
	LinesRead    int `json:"lines_read"`
	Poses        int `json:"poses"`
	LinesSkipped int `json:"lines_skipped"`
	Landmarks    int `json:"landmarks"`
}

// Parser turns log files into poses and landmarks.
type Parser struct {
	grammar   *Grammar
	landmarks []LandmarkConfig
}

// NewParser returns a parser for the given state keyword and landmark definitions.
func NewParser(stateKeyword string, landmarks []LandmarkConfig) *Parser {
	return &Parser{
		grammar:   NewGrammar(stateKeyword),
		landmarks: append([]LandmarkConfig(nil), landmarks...),
	}
}

// Grammar returns the parser's line grammar.
func (p *Parser) Grammar() *Grammar { return p.grammar }

// ParseReader reads r line by line. Undecodable bytes are replaced rather
// than rejected. The only error is a read failure, in which case the partial
// result must be discarded by the caller.
func (p *Parser) ParseReader(name string, r io.Reader) (FileResult, error) {
	res := FileResult{
		Name:      name,
		Landmarks: make(map[string][]Landmark, len(p.landmarks)),
	}
	for _, cfg := range p.landmarks {
		res.Landmarks[cfg.Keyword] = nil
	}

	br := bufio.NewReader(r)
	lineNo := 0
	for {
		raw, err := br.ReadString('\n')
		if len(raw) > 0 {
			lineNo++
			p.parseLine(&res, strings.ToValidUTF8(strings.TrimRight(raw, "\r\n"), "�"), lineNo)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return FileResult{}, fmt.Errorf("read %s: %w", name, err)
		}
	}
	res.LinesRead = lineNo
	return res, nil
}

func (p *Parser) parseLine(res *FileResult, line string, lineNo int) {
	if pose, _, ok := p.grammar.ParseLine(line); ok {
		pose.Line = lineNo
		res.Poses = append(res.Poses, pose)
	} else if isCandidate(line) {
		res.Skipped++
		tracef("%s:%d: no pose grammar matched", res.Name, lineNo)
	}
	for _, lm := range ExtractLandmarks(line, lineNo, p.landmarks) {
		res.Landmarks[lm.Keyword] = append(res.Landmarks[lm.Keyword], lm)
	}
}

// isCandidate is a cheap check for lines that look like they meant to carry a pose.
func isCandidate(line string) bool {
	return strings.Contains(line, "type") && strings.Contains(line, "(")
}

// ParseFile opens and parses one file. ok is false when the file could not
// be opened or read; nothing from such a file is returned.
func (p *Parser) ParseFile(fsys fs.FS, name string) (FileResult, bool) {
	f, err := fsys.Open(name)
	if err != nil {
		opsf("skipping %s: %v", name, err)
		return FileResult{}, false
	}
	defer f.Close()

	res, err := p.ParseReader(name, f)
	if err != nil {
		opsf("skipping %s: %v", name, err)
		return FileResult{}, false
	}
	diagf("%s: %d lines, %d poses, %d skipped", name, res.LinesRead, len(res.Poses), res.Skipped)
	return res, true
}

// ScanDir parses every candidate log file under fsys in sorted order.
// The error is non-nil only when the root itself cannot be listed.
func (p *Parser) ScanDir(fsys fs.FS) ([]FileResult, ScanStats, error) {
	var stats ScanStats
	names, err := CandidateFiles(fsys)
	if err != nil {
		return nil, stats, err
	}

	results := make([]FileResult, 0, len(names))
	for _, name := range names {
		stats.FilesScanned++
		res, ok := p.ParseFile(fsys, name)
		if !ok {
			stats.FilesSkipped++
			continue
		}
		stats.LinesRead += res.LinesRead
		stats.Poses += len(res.Poses)
		stats.LinesSkipped += res.Skipped
		for _, lms := range res.Landmarks {
			stats.Landmarks += len(lms)
		}
		results = append(results, res)
	}
	return results, stats, nil
}

// IsLogName reports whether a file name is a scan candidate: a .log or .txt
// extension in any case, or no extension at all.
func IsLogName(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".log", ".txt", "":
		return true
	}
	return false
}

// CandidateFiles walks fsys recursively and returns the sorted, de-duplicated
// names of candidate log files. Unreadable subdirectories are skipped.
func CandidateFiles(fsys fs.FS) ([]string, error) {
	resolver, _ := fsys.(Resolver)
	seen := make(map[string]bool)
	var names []string

	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			if name == "." {
				return err
			}
			opsf("skipping %s: %v", name, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if !IsLogName(d.Name()) {
			return nil
		}
		key := path.Clean(name)
		if resolver != nil {
			if real, rerr := resolver.RealPath(name); rerr == nil {
				key = real
			}
		}
		if seen[key] {
			return nil
		}
		seen[key] = true
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan log directory: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
