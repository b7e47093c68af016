package adapthttp

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"injtracker/internal/app"
	"injtracker/internal/domain"
)

// maxImportBytes caps the size of an uploaded document.
const maxImportBytes = 10 << 20

type recordRequest struct {
	Date     string   `json:"date"`
	Quadrant *string  `json:"quadrant"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Dose     string   `json:"dose"`
	Weight   *float64 `json:"weight"`
	Notes    string   `json:"notes"`
}

func (req recordRequest) toNewInjection() (app.NewInjection, error) {
	in := app.NewInjection{Dose: domain.Dose(req.Dose), Weight: req.Weight, Notes: req.Notes}
	if req.Date != "" {
		d, err := domain.ParseDate(req.Date)
		if err != nil {
			return in, err
		}
		in.Date = d
	}
	switch {
	case req.Quadrant != nil:
		q, err := domain.ParseQuadrant(*req.Quadrant)
		if err != nil {
			return in, err
		}
		in.Site = domain.QuadrantSite(q)
	case req.X != nil && req.Y != nil:
		in.Site = domain.PointSite(*req.X, *req.Y)
	}
	return in, nil
}

func (s *Server) handleListInjections(w http.ResponseWriter, r *http.Request) {
	items, err := s.injections.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.Document{Injections: items})
}

func (s *Server) handleRecordInjection(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in, err := req.toNewInjection()
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuadrant) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid date: %w", err))
		return
	}
	inj, err := s.injections.Record(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inj)
}

func (s *Server) handleRemoveInjection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := s.injections.Remove(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !ok {
		s.writeServiceError(w, r, fmt.Errorf("%w: %s", domain.ErrNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearInjections(w http.ResponseWriter, r *http.Request) {
	if err := s.injections.Clear(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("reading body: %w", err))
		return
	}
	res, err := s.injections.Import(r.Context(), data)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.injections.Export(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.injections.Summary(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
