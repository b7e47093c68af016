package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"injtracker/internal/domain"
)

var (
	// ErrOutsideBody rejects a point that is not on the body ellipse.
	ErrOutsideBody = errors.New("site is outside the body area")
	// ErrExclusionZone rejects a point too close to the navel.
	ErrExclusionZone = errors.New("site is inside the exclusion zone")
	// ErrInvalidPoint rejects coordinates outside the unit square.
	ErrInvalidPoint = errors.New("point coordinates must be within [0, 1]")
	// ErrMissingSite rejects a record with neither quadrant nor point.
	ErrMissingSite = errors.New("site is required")
	// ErrResolutionTooLarge rejects a heatmap grid above MaxFieldResolution.
	ErrResolutionTooLarge = errors.New("resolution too large")
)

// MaxFieldResolution bounds the heatmap grid a caller may request.
const MaxFieldResolution = 400

// IsValidation reports whether err was caused by bad caller input rather
// than a storage failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrOutsideBody, ErrExclusionZone, ErrInvalidPoint, ErrMissingSite, ErrResolutionTooLarge,
		domain.ErrInvalidQuadrant, domain.ErrMalformedDocument,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// NewInjection is the user input for a new record. A zero Date means now and
// an empty Dose repeats the previous one.
type NewInjection struct {
	Date   time.Time
	Site   domain.Site
	Dose   domain.Dose
	Weight *float64
	Notes  string
}

// Summary is the at-a-glance state of the history.
type Summary struct {
	Count         int             `json:"count"`
	DaysSinceLast *int            `json:"daysSinceLast"`
	LastDose      domain.Dose     `json:"lastDose,omitempty"`
	LastSite      string          `json:"lastSite,omitempty"`
	NextDue       *domain.NextDue `json:"nextDue"`
}

// InjectionService encapsulates history use cases.
type InjectionService struct {
	repo   domain.InjectionRepository
	engine domain.Engine
	opts   options
}

// NewInjectionService creates an InjectionService backed by repo.
func NewInjectionService(repo domain.InjectionRepository, engine domain.Engine, opts ...Option) *InjectionService {
	return &InjectionService{repo: repo, engine: engine, opts: buildOptions(opts)}
}

func (s *InjectionService) validateSite(site domain.Site) error {
	if site.IsZero() {
		return ErrMissingSite
	}
	if q, ok := site.Quadrant(); ok {
		if !q.Valid() {
			return fmt.Errorf("%w: %q", domain.ErrInvalidQuadrant, string(q))
		}
		return nil
	}
	x, y, _ := site.Point()
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return fmt.Errorf("%w: (%g, %g)", ErrInvalidPoint, x, y)
	}
	g := s.engine.Influence.Geometry
	if !g.IsInsideBody(x, y) {
		return ErrOutsideBody
	}
	if g.IsInExclusionZone(x, y) {
		return ErrExclusionZone
	}
	return nil
}

// Record validates and stores a new injection.
func (s *InjectionService) Record(ctx context.Context, in NewInjection) (domain.Injection, error) {
	if err := s.validateSite(in.Site); err != nil {
		return domain.Injection{}, err
	}

	inj := domain.Injection{
		ID:     s.opts.newID(),
		Date:   in.Date,
		Site:   in.Site,
		Dose:   domain.Dose(strings.TrimSpace(string(in.Dose))),
		Weight: in.Weight,
		Notes:  strings.TrimSpace(in.Notes),
	}
	if inj.Date.IsZero() {
		inj.Date = s.opts.now()
	}
	if inj.Dose == "" {
		dose, err := s.defaultDose(ctx)
		if err != nil {
			return domain.Injection{}, err
		}
		inj.Dose = dose
	}

	if err := s.repo.AddInjection(ctx, inj); err != nil {
		return domain.Injection{}, err
	}
	s.opts.metrics.Recorded()
	s.opts.log.Info("injection recorded",
		zap.String("id", inj.ID),
		zap.Stringer("site", inj.Site),
		zap.String("dose", string(inj.Dose)))
	return inj, nil
}

func (s *InjectionService) defaultDose(ctx context.Context) (domain.Dose, error) {
	history, err := s.repo.ListInjections(ctx)
	if err != nil {
		return "", err
	}
	if last, ok := domain.MostRecent(history); ok && last.Dose != "" {
		return last.Dose, nil
	}
	return domain.DoseOptions[0], nil
}

// Remove deletes the injection with id and reports whether it existed.
func (s *InjectionService) Remove(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.DeleteInjection(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		s.opts.metrics.Removed(1)
		s.opts.log.Info("injection removed", zap.String("id", id))
	}
	return ok, nil
}

// List returns the history newest first.
func (s *InjectionService) List(ctx context.Context) ([]domain.Injection, error) {
	history, err := s.repo.ListInjections(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Date.After(history[j].Date)
	})
	return history, nil
}

// ImportResult counts what an import did.
type ImportResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// Import merges a document into the history, skipping ids that already
// exist. Records that cannot be decoded are logged and counted as skipped.
// A malformed document changes nothing.
func (s *InjectionService) Import(ctx context.Context, data []byte) (ImportResult, error) {
	doc, err := domain.DecodeDocument(data)
	if err != nil {
		return ImportResult{}, err
	}
	for _, sk := range doc.Skipped {
		s.opts.log.Warn("skipping unreadable injection record",
			zap.Int("index", sk.Index), zap.String("id", sk.ID), zap.Error(sk.Err))
	}

	seen := make(map[string]struct{}, len(doc.Injections))
	batch := make([]domain.Injection, 0, len(doc.Injections))
	for _, inj := range doc.Injections {
		if _, dup := seen[inj.ID]; dup {
			continue
		}
		seen[inj.ID] = struct{}{}
		batch = append(batch, inj)
	}

	added, err := s.repo.MergeInjections(ctx, batch)
	if err != nil {
		return ImportResult{}, err
	}
	s.opts.metrics.Imported(added)
	s.opts.log.Info("document imported",
		zap.Int("records", len(doc.Injections)),
		zap.Int("added", added),
		zap.Int("skipped", len(doc.Skipped)))
	return ImportResult{Added: added, Skipped: len(doc.Skipped)}, nil
}

// Export returns a suggested file name and the history as an indented
// document, in insertion order.
func (s *InjectionService) Export(ctx context.Context) (string, []byte, error) {
	history, err := s.repo.ListInjections(ctx)
	if err != nil {
		return "", nil, err
	}
	data, err := json.MarshalIndent(domain.Document{Injections: history}, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("encoding export: %w", err)
	}
	name := "injections-" + s.opts.now().Format("20060102") + ".json"
	return name, data, nil
}

// Clear deletes the whole history.
func (s *InjectionService) Clear(ctx context.Context) error {
	history, err := s.repo.ListInjections(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.ClearInjections(ctx); err != nil {
		return err
	}
	s.opts.metrics.Removed(len(history))
	s.opts.log.Warn("history cleared", zap.Int("removed", len(history)))
	return nil
}

// Summary reports the count, the last injection and the next due date.
func (s *InjectionService) Summary(ctx context.Context) (Summary, error) {
	history, err := s.repo.ListInjections(ctx)
	if err != nil {
		return Summary{}, err
	}
	now := s.opts.now()
	sum := Summary{Count: len(history)}
	last, ok := domain.MostRecent(history)
	if !ok {
		return sum, nil
	}
	days := domain.AgeDays(last.Date, now)
	sum.DaysSinceLast = &days
	sum.LastDose = last.Dose
	sum.LastSite = s.engine.Influence.Geometry.ResolveQuadrant(last.Site).Label()
	if next, ok := s.engine.NextDue(history, now); ok {
		sum.NextDue = &next
	}
	return sum, nil
}
