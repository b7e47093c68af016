// Package domain contains the core business entities, the scoring model and
// the repository ports.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidQuadrant indicates a quadrant tag outside UL, UR, LL, LR.
	ErrInvalidQuadrant = errors.New("quadrant must be one of UL, UR, LL, LR")
	// ErrNotFound indicates that no injection exists with the requested id.
	ErrNotFound = errors.New("injection not found")
	// ErrDuplicateID indicates an attempt to store a second injection with an
	// id that is already taken.
	ErrDuplicateID = errors.New("injection id already exists")
)

// Quadrant is one of the four regions of the body ellipse, split through its
// center.
type Quadrant string

const (
	UpperLeft  Quadrant = "UL"
	UpperRight Quadrant = "UR"
	LowerLeft  Quadrant = "LL"
	LowerRight Quadrant = "LR"
)

// Quadrants lists every quadrant in display order.
var Quadrants = []Quadrant{UpperLeft, UpperRight, LowerLeft, LowerRight}

// ParseQuadrant accepts a quadrant tag, case-insensitively.
func ParseQuadrant(s string) (Quadrant, error) {
	q := Quadrant(strings.ToUpper(strings.TrimSpace(s)))
	if !q.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidQuadrant, s)
	}
	return q, nil
}

// Valid reports whether q is one of the four known tags.
func (q Quadrant) Valid() bool {
	switch q {
	case UpperLeft, UpperRight, LowerLeft, LowerRight:
		return true
	}
	return false
}

// Label returns a human-readable name.
func (q Quadrant) Label() string {
	switch q {
	case UpperLeft:
		return "upper left"
	case UpperRight:
		return "upper right"
	case LowerLeft:
		return "lower left"
	case LowerRight:
		return "lower right"
	}
	return string(q)
}

type siteKind uint8

const (
	siteNone siteKind = iota
	siteQuadrant
	sitePoint
)

// Site locates an injection either as a discrete quadrant or as a normalized
// point on the reference image. The zero Site locates nothing.
type Site struct {
	kind     siteKind
	quadrant Quadrant
	x, y     float64
}

// QuadrantSite returns a Site tagged with q.
func QuadrantSite(q Quadrant) Site {
	return Site{kind: siteQuadrant, quadrant: q}
}

// PointSite returns a Site at normalized image coordinates (x, y).
func PointSite(x, y float64) Site {
	return Site{kind: sitePoint, x: x, y: y}
}

// Quadrant returns the quadrant tag when the site was recorded as one.
func (s Site) Quadrant() (Quadrant, bool) {
	return s.quadrant, s.kind == siteQuadrant
}

// Point returns the coordinates when the site was recorded as a point.
func (s Site) Point() (x, y float64, ok bool) {
	return s.x, s.y, s.kind == sitePoint
}

// IsZero reports whether the site locates nothing.
func (s Site) IsZero() bool { return s.kind == siteNone }

func (s Site) String() string {
	switch s.kind {
	case siteQuadrant:
		return string(s.quadrant)
	case sitePoint:
		return fmt.Sprintf("(%.3f, %.3f)", s.x, s.y)
	}
	return "none"
}

// Dose is a medication strength in mg, kept as the text the user picked.
type Dose string

// DoseOptions lists the available strengths, lowest first.
var DoseOptions = []Dose{"2.5", "5", "7.5", "10", "12.5", "15"}

// Injection is a single administered dose.
type Injection struct {
	ID     string
	Date   time.Time
	Site   Site
	Dose   Dose
	Weight *float64
	Notes  string
}

// InjectionRepository is the port for the injection history.
type InjectionRepository interface {
	AddInjection(ctx context.Context, inj Injection) error
	DeleteInjection(ctx context.Context, id string) (bool, error)
	// ListInjections returns a snapshot of the history in insertion order.
	ListInjections(ctx context.Context) ([]Injection, error)
	// MergeInjections appends every injection whose id is not yet stored and
	// returns how many were added. Either all new records land or none do.
	MergeInjections(ctx context.Context, injs []Injection) (int, error)
	ClearInjections(ctx context.Context) error
}

// MostRecent returns the injection with the latest date.
func MostRecent(history []Injection) (Injection, bool) {
	var latest Injection
	found := false
	for _, inj := range history {
		if !found || inj.Date.After(latest.Date) {
			latest = inj
			found = true
		}
	}
	return latest, found
}
