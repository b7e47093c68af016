package app

import (
	"context"
	"fmt"
	"time"

	"injtracker/internal/domain"
	"injtracker/internal/metrics"
)

// RecommendationService scores candidate sites against a snapshot of the
// history taken once per call.
type RecommendationService struct {
	repo       domain.InjectionRepository
	engine     domain.Engine
	resolution int
	opts       options
}

// NewRecommendationService creates a RecommendationService. resolution is
// the heatmap size used when a caller asks for the default.
func NewRecommendationService(repo domain.InjectionRepository, engine domain.Engine, resolution int, opts ...Option) *RecommendationService {
	return &RecommendationService{
		repo:       repo,
		engine:     engine,
		resolution: resolution,
		opts:       buildOptions(opts),
	}
}

// Engine returns the scoring configuration.
func (s *RecommendationService) Engine() domain.Engine { return s.engine }

// DefaultResolution is the heatmap size used for resolution <= 0.
func (s *RecommendationService) DefaultResolution() int { return s.resolution }

func (s *RecommendationService) snapshot(ctx context.Context) ([]domain.Injection, time.Time, error) {
	history, err := s.repo.ListInjections(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	return history, s.opts.now(), nil
}

// Field scores the whole image at the given resolution.
func (s *RecommendationService) Field(ctx context.Context, resolution int) (domain.Field, error) {
	if resolution <= 0 {
		resolution = s.resolution
	}
	if resolution > MaxFieldResolution {
		return domain.Field{}, fmt.Errorf("%w: %d > %d", ErrResolutionTooLarge, resolution, MaxFieldResolution)
	}
	history, now, err := s.snapshot(ctx)
	if err != nil {
		return domain.Field{}, err
	}
	start := time.Now()
	f := s.engine.ScoreField(history, now, resolution)
	s.opts.metrics.ObserveScoring(metrics.PassField, start, len(history))
	return f, nil
}

// Quadrants scores each quadrant with the discrete model.
func (s *RecommendationService) Quadrants(ctx context.Context) (map[domain.Quadrant]float64, error) {
	history, now, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	scores := s.engine.ScoreQuadrants(history, now)
	s.opts.metrics.ObserveScoring(metrics.PassQuadrants, start, len(history))
	return scores, nil
}

// ScoreAt scores one candidate point with the continuous model.
func (s *RecommendationService) ScoreAt(ctx context.Context, x, y float64) (domain.Score, error) {
	history, now, err := s.snapshot(ctx)
	if err != nil {
		return domain.Score{}, err
	}
	start := time.Now()
	score := s.engine.ScoreAt(history, now, x, y)
	s.opts.metrics.ObserveScoring(metrics.PassPoint, start, len(history))
	return score, nil
}

// ProximityWarning returns a warning when an unhealed site lies near (x, y),
// or nil.
func (s *RecommendationService) ProximityWarning(ctx context.Context, x, y float64) (*domain.Warning, error) {
	history, now, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	w := s.engine.ProximityWarning(history, now, x, y)
	s.opts.metrics.ObserveScoring(metrics.PassWarning, start, len(history))
	return w, nil
}

// QuadrantWarning returns a warning when q was used recently, or nil.
func (s *RecommendationService) QuadrantWarning(ctx context.Context, q domain.Quadrant) (*domain.Warning, error) {
	if !q.Valid() {
		return nil, domain.ErrInvalidQuadrant
	}
	history, now, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	w := s.engine.QuadrantWarning(history, now, q)
	s.opts.metrics.ObserveScoring(metrics.PassWarning, start, len(history))
	return w, nil
}

// NextDue suggests the next dose date; ok is false for an empty history.
func (s *RecommendationService) NextDue(ctx context.Context) (domain.NextDue, bool, error) {
	history, now, err := s.snapshot(ctx)
	if err != nil {
		return domain.NextDue{}, false, err
	}
	start := time.Now()
	next, ok := s.engine.NextDue(history, now)
	s.opts.metrics.ObserveScoring(metrics.PassNextDue, start, len(history))
	return next, ok, nil
}
