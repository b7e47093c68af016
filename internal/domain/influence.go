package domain

import (
	"errors"
	"math"
	"time"
)

const day = 24 * time.Hour

// AgeDays is the number of whole days between date and now. Dates in the
// future count as today.
func AgeDays(date, now time.Time) int {
	d := now.Sub(date)
	if d <= 0 {
		return 0
	}
	return int(d / day)
}

// TimeFactor decays linearly from 1 on the day of injection to 0 once the
// site has had recoveryDays to heal.
func TimeFactor(ageDays, recoveryDays int) float64 {
	if recoveryDays <= 0 {
		return 0
	}
	return math.Max(0, 1-float64(ageDays)/float64(recoveryDays))
}

type scoreKind uint8

const (
	scoreValue scoreKind = iota
	scoreExcluded
	scoreOutside
)

// Score is the recommendation for a single location: either a value in
// [0, 1] (1 is most recommended) or one of the two non-numeric outcomes.
type Score struct {
	kind  scoreKind
	value float64
}

// ValueScore wraps a numeric recommendation.
func ValueScore(v float64) Score { return Score{kind: scoreValue, value: v} }

// ExcludedScore marks a location inside the exclusion zone.
func ExcludedScore() Score { return Score{kind: scoreExcluded} }

// OutsideScore marks a location outside the body region.
func OutsideScore() Score { return Score{kind: scoreOutside} }

// Value returns the numeric score; ok is false for excluded and outside.
func (s Score) Value() (v float64, ok bool) {
	return s.value, s.kind == scoreValue
}

func (s Score) IsExcluded() bool { return s.kind == scoreExcluded }
func (s Score) IsOutside() bool  { return s.kind == scoreOutside }

// Kind names the outcome: "value", "excluded" or "outside".
func (s Score) Kind() string {
	switch s.kind {
	case scoreExcluded:
		return "excluded"
	case scoreOutside:
		return "outside"
	}
	return "value"
}

// Influence scores candidate sites against an injection history.
type Influence struct {
	Geometry     Geometry
	RecoveryDays int
	// Sigma is the Gaussian spread in ellipse-radius units.
	Sigma float64
}

// Validate checks the decay parameters and the geometry.
func (in Influence) Validate() error {
	if in.RecoveryDays <= 0 {
		return errors.New("recovery days must be > 0")
	}
	if in.Sigma <= 0 {
		return errors.New("sigma must be > 0")
	}
	return in.Geometry.Validate()
}

// BodyDistance is the distance between two points with each axis scaled by
// the matching ellipse radius.
func (in Influence) BodyDistance(x1, y1, x2, y2 float64) float64 {
	dx := (x1 - x2) / in.Geometry.RX
	dy := (y1 - y2) / in.Geometry.RY
	return math.Sqrt(dx*dx + dy*dy)
}

// PointScore is the continuous recommendation at (x, y). The freshest, closest
// injection dominates: score = 1 - max(timeFactor * gaussian(distance)).
func (in Influence) PointScore(history []Injection, now time.Time, x, y float64) Score {
	g := in.Geometry
	if !g.IsInsideBody(x, y) {
		return OutsideScore()
	}
	if g.IsInExclusionZone(x, y) {
		return ExcludedScore()
	}

	worst := 0.0
	twoSigmaSq := 2 * in.Sigma * in.Sigma
	for _, inj := range history {
		tf := TimeFactor(AgeDays(inj.Date, now), in.RecoveryDays)
		if tf == 0 {
			continue
		}
		sx, sy := g.SitePoint(inj.Site)
		d := in.BodyDistance(x, y, sx, sy)
		worst = math.Max(worst, tf*math.Exp(-(d*d)/twoSigmaSq))
	}
	return ValueScore(1 - worst)
}

// QuadrantScore is the discrete recommendation for q, driven only by the
// youngest injection that resolves to q.
func (in Influence) QuadrantScore(history []Injection, now time.Time, q Quadrant) float64 {
	minAge, found := in.youngestIn(history, now, q)
	if !found {
		return 1
	}
	return math.Min(1, float64(minAge)/float64(in.RecoveryDays))
}

func (in Influence) youngestIn(history []Injection, now time.Time, q Quadrant) (int, bool) {
	minAge, found := 0, false
	for _, inj := range history {
		if in.Geometry.ResolveQuadrant(inj.Site) != q {
			continue
		}
		age := AgeDays(inj.Date, now)
		if !found || age < minAge {
			minAge, found = age, true
		}
	}
	return minAge, found
}
