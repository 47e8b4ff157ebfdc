package trajectory

import (
	"fmt"
	"io/fs"
	"sort"

	"github.com/banshee-data/pose.report/internal/fsutil"
	"github.com/banshee-data/pose.report/internal/poselog"
)

// Store owns the trajectories parsed from one log directory.
type Store struct {
	stateKeyword string

	trajs     []*Trajectory
	byName    map[string]int
	offsets   []int // offsets[i] = sum of len(trajs[:i])
	total     int
	landmarks map[string]map[string][]poselog.Landmark
	active    string
	stats     poselog.ScanStats
}

// NewStore returns an empty store whose parser matches stateKeyword.
func NewStore(stateKeyword string) *Store {
	s := &Store{stateKeyword: stateKeyword}
	s.Clear()
	return s
}

// Clear drops every trajectory, landmark and the active selection.
func (s *Store) Clear() {
	s.trajs = nil
	s.byName = make(map[string]int)
	s.offsets = nil
	s.total = 0
	s.landmarks = make(map[string]map[string][]poselog.Landmark)
	s.active = ""
	s.stats = poselog.ScanStats{}
}

// LoadDir loads the logs under dir on fsys. See Load.
func (s *Store) LoadDir(fsys fsutil.FileSystem, dir string, landmarks []poselog.LandmarkConfig) (int, error) {
	s.Clear()
	sub, err := fsys.Sub(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrDirectoryUnavailable, dir, err)
	}
	return s.Load(sub, landmarks)
}

// Load clears previous state, scans fsys and builds one trajectory per
// file that yielded at least one pose. It returns the number of such files.
// Landmarks are kept for every file that produced any.
func (s *Store) Load(fsys fs.FS, landmarks []poselog.LandmarkConfig) (int, error) {
	s.Clear()
	results, stats, err := poselog.NewParser(s.stateKeyword, landmarks).ScanDir(fsys)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	s.stats = stats

	// ScanDir already returns names in sorted order.
	for _, res := range results {
		if hasLandmarks(res.Landmarks) {
			s.landmarks[res.Name] = res.Landmarks
		}
		if len(res.Poses) == 0 {
			continue
		}
		s.byName[res.Name] = len(s.trajs)
		s.offsets = append(s.offsets, s.total)
		s.trajs = append(s.trajs, New(res.Name, res.Poses))
		s.total += len(res.Poses)
	}
	return len(s.trajs), nil
}

func hasLandmarks(m map[string][]poselog.Landmark) bool {
	for _, lms := range m {
		if len(lms) > 0 {
			return true
		}
	}
	return false
}

// Stats returns the scan statistics of the last Load.
func (s *Store) Stats() poselog.ScanStats { return s.stats }

// Names returns trajectory names in file order.
func (s *Store) Names() []string {
	names := make([]string, len(s.trajs))
	for i, t := range s.trajs {
		names[i] = t.Name()
	}
	return names
}

// Trajectories returns every trajectory in file order.
func (s *Store) Trajectories() []*Trajectory {
	return append([]*Trajectory(nil), s.trajs...)
}

// Trajectory returns the named trajectory.
func (s *Store) Trajectory(name string) (*Trajectory, error) {
	i, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown trajectory %q", ErrInvalidSelection, name)
	}
	return s.trajs[i], nil
}

// Lookup resolves names to trajectories. An empty list selects all of them.
func (s *Store) Lookup(names []string) ([]*Trajectory, error) {
	if len(names) == 0 {
		return s.Trajectories(), nil
	}
	out := make([]*Trajectory, 0, len(names))
	for _, name := range names {
		t, err := s.Trajectory(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Select makes the named trajectory active and returns its length.
// An unknown name clears the selection and returns 0.
func (s *Store) Select(name string) int {
	i, ok := s.byName[name]
	if !ok {
		s.active = ""
		return 0
	}
	s.active = name
	return s.trajs[i].Len()
}

// Active returns the active trajectory, or nil when none is selected.
func (s *Store) Active() *Trajectory {
	if s.active == "" {
		return nil
	}
	return s.trajs[s.byName[s.active]]
}

// Landmarks returns the landmarks parsed from one file, keyed by keyword.
func (s *Store) Landmarks(name string) map[string][]poselog.Landmark {
	return s.landmarks[name]
}

// LandmarkFiles returns the sorted names of files that produced landmarks.
func (s *Store) LandmarkFiles() []string {
	names := make([]string, 0, len(s.landmarks))
	for name := range s.landmarks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ActiveLandmarks returns the landmarks of the active trajectory's file.
func (s *Store) ActiveLandmarks() map[string][]poselog.Landmark {
	if s.active == "" {
		return nil
	}
	return s.landmarks[s.active]
}

// AllLandmarks merges landmarks from every file, in file order, keyed by keyword.
func (s *Store) AllLandmarks() map[string][]poselog.Landmark {
	out := make(map[string][]poselog.Landmark)
	for _, name := range s.LandmarkFiles() {
		for kw, lms := range s.landmarks[name] {
			out[kw] = append(out[kw], lms...)
		}
	}
	return out
}

// Len returns the number of poses on the merged timeline.
func (s *Store) Len() int { return s.total }

// Merged concatenates every trajectory in file order. It is not time sorted;
// use SortByTime when time order matters.
func (s *Store) Merged() []poselog.Pose {
	out := make([]poselog.Pose, 0, s.total)
	for _, t := range s.trajs {
		out = append(out, t.Poses()...)
	}
	return out
}

// GlobalOffset returns the merged-timeline index of the named trajectory's first pose.
func (s *Store) GlobalOffset(name string) (int, error) {
	i, ok := s.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown trajectory %q", ErrInvalidSelection, name)
	}
	return s.offsets[i], nil
}

// GlobalIndex converts a local index within a trajectory to a merged-timeline index.
func (s *Store) GlobalIndex(name string, local int) (int, error) {
	off, err := s.GlobalOffset(name)
	if err != nil {
		return 0, err
	}
	if n := s.trajs[s.byName[name]].Len(); local < 0 || local >= n {
		return 0, fmt.Errorf("%w: index %d outside %q (len %d)", ErrInvalidSelection, local, name, n)
	}
	return off + local, nil
}

// Frame is one pose located on the merged timeline.
type Frame struct {
	Index int          `json:"index"` // merged-timeline index after clamping
	Name  string       `json:"name"`
	Local int          `json:"local"`
	Pose  poselog.Pose `json:"pose"`
}

// Frame returns the pose at global index idx, clamped to [0, Len()-1].
// It fails only when the store is empty.
func (s *Store) Frame(idx int) (Frame, error) {
	if s.total == 0 {
		return Frame{}, fmt.Errorf("%w: no poses loaded", ErrInvalidSelection)
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= s.total {
		idx = s.total - 1
	}
	// Last trajectory whose offset is <= idx.
	i := sort.Search(len(s.offsets), func(i int) bool { return s.offsets[i] > idx }) - 1
	local := idx - s.offsets[i]
	return Frame{Index: idx, Name: s.trajs[i].Name(), Local: local, Pose: s.trajs[i].Pose(local)}, nil
}

// SelectWindow merges the named trajectories (all when names is empty),
// orders them by time and keeps the poses inside w.
func (s *Store) SelectWindow(names []string, w Window) (WindowSelection, error) {
	trajs, err := s.Lookup(names)
	if err != nil {
		return WindowSelection{}, err
	}
	var poses []poselog.Pose
	for _, t := range trajs {
		poses = append(poses, t.Poses()...)
	}
	return FilterWindow(SortByTime(poses), w), nil
}
