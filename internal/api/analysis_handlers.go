package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/banshee-data/pose.report/internal/analysis"
	"github.com/banshee-data/pose.report/internal/storage/sqlite"
	"github.com/banshee-data/pose.report/internal/trajectory"
)

type selectionInfo struct {
	Names    []string `json:"names,omitempty"`
	From     string   `json:"from,omitempty"`
	To       string   `json:"to,omitempty"`
	Type     *int     `json:"type,omitempty"`
	Count    int      `json:"count"`
	Adjusted bool     `json:"adjusted"`
	Note     string   `json:"note,omitempty"`
}

// windowSelection resolves names, from, to and type into a time-ordered
// trajectory of the selected poses.
func (s *Server) windowSelection(r *http.Request) (*trajectory.Trajectory, selectionInfo, error) {
	q := r.URL.Query()
	win, err := paramWindow(q)
	if err != nil {
		return nil, selectionInfo{}, err
	}
	names := paramList(q, "names")
	sel, err := s.store.SelectWindow(names, win)
	if err != nil {
		return nil, selectionInfo{}, err
	}
	info := selectionInfo{
		Names:    names,
		Type:     win.Type,
		Count:    len(sel.Poses),
		Adjusted: sel.Adjusted,
		Note:     sel.Note,
	}
	if !sel.Window.From.IsZero() {
		info.From = sel.Window.From.Format(windowTimeLayout)
	}
	if !sel.Window.To.IsZero() {
		info.To = sel.Window.To.Format(windowTimeLayout)
	}
	return trajectory.New("selection", sel.Poses), info, nil
}

const windowTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// saveRun persists an analysis result when a database is configured and
// returns its run ID. Persistence failures are logged, not returned.
func (s *Server) saveRun(kind, source string, params, result interface{}) string {
	if s.runs == nil {
		return ""
	}
	pj, err := json.Marshal(params)
	if err != nil {
		Logf("failed to encode %s params: %v", kind, err)
		return ""
	}
	rj, err := json.Marshal(result)
	if err != nil {
		Logf("failed to encode %s result: %v", kind, err)
		return ""
	}
	run := &sqlite.AnalysisRun{Kind: kind, Source: source, ParamsJSON: pj, ResultJSON: rj}
	if err := s.runs.Insert(run); err != nil {
		Logf("failed to save %s run: %v", kind, err)
		return ""
	}
	return run.RunID
}

func sourceOf(names []string) string {
	if len(names) == 0 {
		return "*"
	}
	return strings.Join(names, ",")
}

func (s *Server) fitLine(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sel, info, err := s.windowSelection(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	fit, err := analysis.FitLine(sel.XS(), sel.YS(), sel.Thetas())
	if err != nil {
		s.writeError(w, err)
		return
	}
	runID := s.saveRun(sqlite.KindLineFit, sourceOf(info.Names), info, fit)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"selection": info,
		"fit":       fit,
		"run_id":    runID,
	})
}

func (s *Server) staticStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sel, info, err := s.windowSelection(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sum, err := analysis.StaticSummary(sel.XS(), sel.YS(), sel.Thetas())
	if err != nil {
		s.writeError(w, err)
		return
	}
	runID := s.saveRun(sqlite.KindSummary, sourceOf(info.Names), info, sum)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"selection": info,
		"summary":   sum,
		"run_id":    runID,
	})
}

// comparison resolves the ref and est parameters, falling back to the
// configured pair.
func (s *Server) comparison(r *http.Request) (ref, est *trajectory.Trajectory, step int, err error) {
	q := r.URL.Query()
	refName, estName := q.Get("ref"), q.Get("est")
	if refName == "" {
		refName = s.cfg.GetReference()
	}
	if estName == "" {
		estName = s.cfg.GetEstimate()
	}
	if refName == "" || estName == "" {
		return nil, nil, 0, fmt.Errorf("%w: ref and est are required", errBadParam)
	}
	if ref, err = s.store.Trajectory(refName); err != nil {
		return nil, nil, 0, err
	}
	if est, err = s.store.Trajectory(estName); err != nil {
		return nil, nil, 0, err
	}
	if step, err = paramInt(q, "step", s.cfg.GetRPEStep()); err != nil {
		return nil, nil, 0, err
	}
	if step < 1 {
		return nil, nil, 0, fmt.Errorf("%w: step must be >= 1, got %d", errBadParam, step)
	}
	return ref, est, step, nil
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, est, step, err := s.comparison(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rep, err := analysis.Evaluate(ref, est, analysis.EvalOptions{Step: step})
	if err != nil {
		s.writeError(w, err)
		return
	}
	params := map[string]interface{}{"reference": ref.Name(), "estimate": est.Name(), "step": step}
	runID := s.saveRun(sqlite.KindEvaluation, ref.Name()+","+est.Name(), params, rep)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"report": rep,
		"run_id": runID,
	})
}

func (s *Server) step(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	refName, err := paramRequired(q, "ref")
	if err != nil {
		s.writeError(w, err)
		return
	}
	idx, err := paramInt(q, "idx", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, err := s.store.Trajectory(refName)
	if err != nil {
		s.writeError(w, err)
		return
	}
	estTrajs, err := s.store.Lookup(paramList(q, "est"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ests := make([]analysis.PoseColumns, 0, len(estTrajs))
	for _, t := range estTrajs {
		if t.Name() != ref.Name() {
			ests = append(ests, t)
		}
	}
	st, err := analysis.StepAt(idx, ref, ests...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"step":    st,
		"max_len": analysis.MaxLen(append([]analysis.PoseColumns{ref}, ests...)...),
	})
}

func (s *Server) runsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet, http.MethodDelete) {
		return
	}
	if s.runs == nil {
		s.writeJSONError(w, http.StatusNotFound, "run persistence is disabled")
		return
	}
	q := r.URL.Query()
	id := q.Get("id")

	if r.Method == http.MethodDelete {
		if id == "" {
			s.writeJSONError(w, http.StatusBadRequest, "missing id")
			return
		}
		if err := s.runs.Delete(id); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if id != "" {
		run, err := s.runs.Get(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, run)
		return
	}

	kind := q.Get("kind")
	if kind != "" && !sqlite.ValidKind(kind) {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown kind %q", kind))
		return
	}
	limit, err := paramInt(q, "limit", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	runs, err := s.runs.List(kind, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*sqlite.AnalysisRun{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}
