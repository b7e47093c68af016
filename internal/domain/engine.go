package domain

import (
	"errors"
	"fmt"
	"time"
)

// Engine bundles the scoring model with the warning and scheduling rules.
// All methods are pure: history and now are always passed in.
type Engine struct {
	Influence Influence
	// CycleDays is the suggested interval between doses.
	CycleDays int
	// ProximityRadius is the body-radius distance under which an unhealed
	// site triggers a warning.
	ProximityRadius float64
	// QuadrantWarningDays is how recently a quadrant may have been used
	// before picking it again raises a warning.
	QuadrantWarningDays int
}

// DefaultEngine returns the stock tuning: 28-day recovery on a weekly cycle.
func DefaultEngine() Engine {
	return Engine{
		Influence: Influence{
			Geometry:     DefaultGeometry(),
			RecoveryDays: 28,
			Sigma:        0.45,
		},
		CycleDays:           7,
		ProximityRadius:     0.3,
		QuadrantWarningDays: 7,
	}
}

// Validate checks every tunable of the engine.
func (e Engine) Validate() error {
	if err := e.Influence.Validate(); err != nil {
		return err
	}
	if e.CycleDays <= 0 {
		return errors.New("cycle days must be > 0")
	}
	if e.ProximityRadius <= 0 {
		return errors.New("proximity radius must be > 0")
	}
	if e.QuadrantWarningDays <= 0 {
		return errors.New("quadrant warning days must be > 0")
	}
	return nil
}

// Field is a square grid of scores in row-major order; cell (gx, gy) samples
// the normalized point (gx/Resolution, gy/Resolution).
type Field struct {
	Resolution int
	Cells      []Score
}

// At returns the score of cell (gx, gy).
func (f Field) At(gx, gy int) Score {
	return f.Cells[gy*f.Resolution+gx]
}

// ScoreAt is the continuous score at a single point.
func (e Engine) ScoreAt(history []Injection, now time.Time, x, y float64) Score {
	return e.Influence.PointScore(history, now, x, y)
}

// ScoreField samples the continuous score over the whole image.
func (e Engine) ScoreField(history []Injection, now time.Time, resolution int) Field {
	if resolution <= 0 {
		return Field{}
	}
	f := Field{Resolution: resolution, Cells: make([]Score, resolution*resolution)}
	res := float64(resolution)
	for gy := 0; gy < resolution; gy++ {
		for gx := 0; gx < resolution; gx++ {
			f.Cells[gy*resolution+gx] = e.Influence.PointScore(history, now, float64(gx)/res, float64(gy)/res)
		}
	}
	return f
}

// ScoreQuadrants evaluates the discrete score of every quadrant.
func (e Engine) ScoreQuadrants(history []Injection, now time.Time) map[Quadrant]float64 {
	out := make(map[Quadrant]float64, len(Quadrants))
	for _, q := range Quadrants {
		out[q] = e.Influence.QuadrantScore(history, now, q)
	}
	return out
}

// BestQuadrant returns the highest-scoring quadrant; ties go to the first in
// display order.
func BestQuadrant(scores map[Quadrant]float64) Quadrant {
	best := Quadrants[0]
	for _, q := range Quadrants[1:] {
		if scores[q] > scores[best] {
			best = q
		}
	}
	return best
}

// Warning tells the user that a candidate site was used too recently.
type Warning struct {
	AgeDays  int      `json:"ageDays"`
	Quadrant Quadrant `json:"quadrant"`
	Message  string   `json:"message"`
}

// ProximityWarning returns a warning for the first unhealed injection lying
// within ProximityRadius of (x, y), or nil.
func (e Engine) ProximityWarning(history []Injection, now time.Time, x, y float64) *Warning {
	in := e.Influence
	for _, inj := range history {
		age := AgeDays(inj.Date, now)
		if age >= in.RecoveryDays {
			continue
		}
		sx, sy := in.Geometry.SitePoint(inj.Site)
		if in.BodyDistance(x, y, sx, sy) < e.ProximityRadius {
			return &Warning{
				AgeDays:  age,
				Quadrant: in.Geometry.QuadrantOf(x, y),
				Message:  fmt.Sprintf("too close to the injection from %s; keep at least a finger's width away", agoText(age)),
			}
		}
	}
	return nil
}

// QuadrantWarning returns a warning when q was used within the last
// QuadrantWarningDays days, or nil.
func (e Engine) QuadrantWarning(history []Injection, now time.Time, q Quadrant) *Warning {
	age, found := e.Influence.youngestIn(history, now, q)
	if !found || age >= e.QuadrantWarningDays {
		return nil
	}
	return &Warning{
		AgeDays:  age,
		Quadrant: q,
		Message:  fmt.Sprintf("the %s quadrant was used %s; consider another quadrant", q.Label(), agoText(age)),
	}
}

// NextDue describes when the next dose is suggested.
type NextDue struct {
	// DaysLeft is zero or negative when the dose is already due.
	DaysLeft int       `json:"daysLeft"`
	DueNow   bool      `json:"dueNow"`
	Date     time.Time `json:"date"`
}

// NextDue computes the suggested next dose from the most recent injection.
// ok is false for an empty history.
func (e Engine) NextDue(history []Injection, now time.Time) (NextDue, bool) {
	last, ok := MostRecent(history)
	if !ok {
		return NextDue{}, false
	}
	left := e.CycleDays - AgeDays(last.Date, now)
	if left <= 0 {
		return NextDue{DaysLeft: left, DueNow: true, Date: now}, true
	}
	return NextDue{DaysLeft: left, Date: now.AddDate(0, 0, left)}, true
}

func agoText(age int) string {
	switch age {
	case 0:
		return "today"
	case 1:
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", age)
}
