package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/banshee-data/pose.report/internal/analysis"
	"github.com/banshee-data/pose.report/internal/poselog"
	"github.com/banshee-data/pose.report/internal/render"
)

// chartData collects the series and landmarks for the requested names.
func (s *Server) chartData(r *http.Request) ([]render.Series, []render.Marks, error) {
	names := paramList(r.URL.Query(), "names")
	trajs, err := s.store.Lookup(names)
	if err != nil {
		return nil, nil, err
	}
	series := make([]render.Series, len(trajs))
	for i, t := range trajs {
		series[i] = render.SeriesOf(t)
	}
	lms := s.store.AllLandmarks()
	if len(names) > 0 {
		lms = make(map[string][]poselog.Landmark)
		for _, name := range names {
			for kw, found := range s.store.Landmarks(name) {
				lms[kw] = append(lms[kw], found...)
			}
		}
	}
	return series, render.MarksOf(s.cfg.GetLandmarks(), lms), nil
}

func (s *Server) writeChartError(w http.ResponseWriter, err error) {
	if errors.Is(err, render.ErrNoData) {
		s.writeJSONError(w, http.StatusNotFound, "nothing to plot")
		return
	}
	s.writeError(w, err)
}

func (s *Server) writePNG(w http.ResponseWriter, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) trajectoryChart(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	series, marks, err := s.chartData(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	o := render.PageOptions{Title: "Trajectories"}
	if r.URL.Query().Get("idx") != "" {
		idx, err := paramInt(r.URL.Query(), "idx", 0)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if f, err := s.store.Frame(idx); err == nil {
			o.Cursor = &render.Point{
				Label: fmt.Sprintf("frame %d (%s)", f.Index, f.Name),
				X:     f.Pose.X,
				Y:     f.Pose.Y,
			}
		}
	}

	var buf bytes.Buffer
	if err := render.WriteTrajectoryPage(&buf, series, marks, o); err != nil {
		s.writeChartError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) trajectoryPNG(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	series, marks, err := s.chartData(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := render.WriteTrajectoryPNG(&buf, "Trajectories", series, marks); err != nil {
		s.writeChartError(w, err)
		return
	}
	s.writePNG(w, &buf)
}

func (s *Server) lineFitPNG(w http.ResponseWriter, r *http.Request) {
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
	var buf bytes.Buffer
	title := fmt.Sprintf("Line fit over %d poses", info.Count)
	if err := render.WriteLineFitPNG(&buf, title, sel.XS(), sel.YS(), fit); err != nil {
		s.writeChartError(w, err)
		return
	}
	s.writePNG(w, &buf)
}

func (s *Server) evaluatePNG(w http.ResponseWriter, r *http.Request) {
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
	var buf bytes.Buffer
	if err := render.WriteErrorPNG(&buf, rep); err != nil {
		s.writeChartError(w, err)
		return
	}
	s.writePNG(w, &buf)
}
