package adapthttp

import (
	"net/http"

	"injtracker/internal/domain"
)

type scoreJSON struct {
	Kind  string   `json:"kind"`
	Score *float64 `json:"score,omitempty"`
	RGBA  [4]int   `json:"rgba"`
}

func toScoreJSON(s domain.Score) scoreJSON {
	c := domain.ScoreColor(s)
	out := scoreJSON{Kind: s.Kind(), RGBA: [4]int{int(c.R), int(c.G), int(c.B), int(c.A)}}
	if v, ok := s.Value(); ok {
		out.Score = &v
	}
	return out
}

func (s *Server) handleField(w http.ResponseWriter, r *http.Request) {
	res := intQuery(r, "resolution", s.recommend.DefaultResolution())
	f, err := s.recommend.Field(r.Context(), res)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	cells := make([]scoreJSON, len(f.Cells))
	for i, c := range f.Cells {
		cells[i] = toScoreJSON(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resolution": f.Resolution,
		"cells":      cells,
	})
}

func (s *Server) handleQuadrants(w http.ResponseWriter, r *http.Request) {
	scores, err := s.recommend.Quadrants(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scores": scores,
		"best":   domain.BestQuadrant(scores),
	})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	x, y, err := pointQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	score, err := s.recommend.ScoreAt(r.Context(), x, y)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScoreJSON(score))
}

func (s *Server) handleWarning(w http.ResponseWriter, r *http.Request) {
	var (
		warning *domain.Warning
		err     error
	)
	if qs := r.URL.Query().Get("quadrant"); qs != "" {
		q, perr := domain.ParseQuadrant(qs)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr)
			return
		}
		warning, err = s.recommend.QuadrantWarning(r.Context(), q)
	} else {
		x, y, perr := pointQuery(r)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr)
			return
		}
		warning, err = s.recommend.ProximityWarning(r.Context(), x, y)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"warning": warning})
}

func (s *Server) handleNextDue(w http.ResponseWriter, r *http.Request) {
	next, ok, err := s.recommend.NextDue(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"available": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": true, "next": next})
}
