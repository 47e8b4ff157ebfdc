package api

import (
	"math"
	"net/http"
	"time"

	"github.com/banshee-data/pose.report/internal/analysis"
	"github.com/banshee-data/pose.report/internal/poselog"
	"github.com/banshee-data/pose.report/internal/trajectory"
)

type trajectorySummary struct {
	Name   string   `json:"name"`
	Len    int      `json:"len"`
	Offset int      `json:"offset"`
	First  string   `json:"first,omitempty"`
	Last   string   `json:"last,omitempty"`
	Types  []int    `json:"types"`
	Times  []string `json:"times"` // distinct whole-second times, for window bounds
}

type trajectoriesResponse struct {
	Trajectories  []trajectorySummary `json:"trajectories"`
	Total         int                 `json:"total"`
	Stats         poselog.ScanStats   `json:"stats"`
	LandmarkFiles []string            `json:"landmark_files"`
}

func (s *Server) listTrajectories(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := trajectoriesResponse{
		Trajectories:  make([]trajectorySummary, 0),
		Total:         s.store.Len(),
		Stats:         s.store.Stats(),
		LandmarkFiles: s.store.LandmarkFiles(),
	}
	for _, t := range s.store.Trajectories() {
		off, _ := s.store.GlobalOffset(t.Name())
		poses := t.Poses()
		resp.Trajectories = append(resp.Trajectories, trajectorySummary{
			Name:   t.Name(),
			Len:    t.Len(),
			Offset: off,
			First:  poses[0].Timestamp,
			Last:   poses[len(poses)-1].Timestamp,
			Types:  trajectory.UniqueTypes(poses),
			Times:  formatTimes(trajectory.UniqueTimes(poses)),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func formatTimes(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Format(poselog.TimestampLayout)
	}
	return out
}

// statePose is a pose as served, flagged when its state carries the
// configured real-time tag.
type statePose struct {
	poselog.Pose
	RealTime bool `json:"realtime"`
}

func (s *Server) servePose(p poselog.Pose) statePose {
	return statePose{Pose: p, RealTime: p.IsRealTime(s.cfg.GetRealTimeTag())}
}

type frameResponse struct {
	Index int       `json:"index"`
	Name  string    `json:"name"`
	Local int       `json:"local"`
	Pose  statePose `json:"pose"`
}

func (s *Server) reloadHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	n, err := s.Reload()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.mu.RLock()
	stats := s.store.Stats()
	s.mu.RUnlock()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"loaded": n,
		"stats":  stats,
	})
}

func (s *Server) showFrame(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	idx, err := paramInt(r.URL.Query(), "idx", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, err := s.store.Frame(idx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, frameResponse{Index: f.Index, Name: f.Name, Local: f.Local, Pose: s.servePose(f.Pose)})
}

type nearestResponse struct {
	Found     bool       `json:"found"`
	Name      string     `json:"name,omitempty"`
	Index     int        `json:"index"`
	Global    int        `json:"global"`
	Distance  *float64   `json:"distance,omitempty"` // nil when nothing was searched
	Threshold float64    `json:"threshold"`
	Pose      *statePose `json:"pose,omitempty"`
}

func (s *Server) findNearest(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	x, err := paramFloat(q, "x")
	if err != nil {
		s.writeError(w, err)
		return
	}
	y, err := paramFloat(q, "y")
	if err != nil {
		s.writeError(w, err)
		return
	}
	threshold := s.cfg.GetNearestThreshold()
	if q.Get("threshold") != "" {
		if threshold, err = paramFloat(q, "threshold"); err != nil {
			s.writeError(w, err)
			return
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	candidates, err := s.store.Lookup(paramList(q, "names"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	m := analysis.Nearest(x, y, candidates, threshold)
	resp := nearestResponse{Found: m.Found, Threshold: threshold}
	if !math.IsInf(m.Distance, 0) {
		d := m.Distance
		resp.Distance = &d
	}
	if m.Found {
		p := s.servePose(candidates[m.Candidate].Pose(m.Index))
		resp.Name = m.Name
		resp.Index = m.Index
		resp.Pose = &p
		// The merged timeline is over every trajectory, not just the candidates.
		if resp.Global, err = s.store.GlobalIndex(m.Name, m.Index); err != nil {
			s.writeError(w, err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// rangePoses returns the sequence index ranges apply to: the named
// trajectory, or the merged timeline when name is empty.
func (s *Server) rangePoses(name string) ([]poselog.Pose, error) {
	if name == "" {
		return s.store.Merged(), nil
	}
	t, err := s.store.Trajectory(name)
	if err != nil {
		return nil, err
	}
	return t.Poses(), nil
}

func (s *Server) selectRange(r *http.Request) ([]poselog.Pose, trajectory.Range, error) {
	q := r.URL.Query()
	poses, err := s.rangePoses(q.Get("name"))
	if err != nil {
		return nil, trajectory.Range{}, err
	}
	start, err := paramInt(q, "start", 0)
	if err != nil {
		return nil, trajectory.Range{}, err
	}
	end, err := paramInt(q, "end", len(poses)-1)
	if err != nil {
		return nil, trajectory.Range{}, err
	}
	rng, err := trajectory.SelectIndexRange(len(poses), start, end)
	if err != nil {
		return nil, trajectory.Range{}, err
	}
	return poses, rng, nil
}

func (s *Server) showRange(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	poses, rng, err := s.selectRange(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"range": rng,
		"poses": rng.Slice(poses),
	})
}

func (s *Server) exportRange(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	poses, rng, err := s.selectRange(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	path, err := trajectory.ExportRange(s.fsys, s.cfg.OutPath(), poses, rng)
	if err != nil {
		s.writeError(w, err)
		return
	}
	Logf("exported %d poses to %s", rng.Len(), path)
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"path":  path,
		"range": rng,
	})
}
