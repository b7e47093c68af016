package domain

import (
	"errors"
	"math"
)

// Geometry describes the injectable body region as an ellipse in normalized
// image space, with a circular exclusion zone around its center.
type Geometry struct {
	CX, CY float64
	RX, RY float64
	// ExclusionRatio is the exclusion radius as a fraction of the ellipse
	// radius, measured in normalized ellipse distance.
	ExclusionRatio float64
}

// DefaultGeometry matches the reference abdomen image.
func DefaultGeometry() Geometry {
	return Geometry{CX: 0.500, CY: 0.630, RX: 0.155, RY: 0.215, ExclusionRatio: 0.30}
}

// Validate checks that the ellipse is non-degenerate.
func (g Geometry) Validate() error {
	if g.RX <= 0 || g.RY <= 0 {
		return errors.New("geometry radii must be > 0")
	}
	if g.ExclusionRatio < 0 || g.ExclusionRatio >= 1 {
		return errors.New("exclusion ratio must be within [0, 1)")
	}
	return nil
}

// NormDist is the distance of (x, y) from the center in ellipse-radius units.
func (g Geometry) NormDist(x, y float64) float64 {
	return math.Sqrt(g.normDistSq(x, y))
}

func (g Geometry) normDistSq(x, y float64) float64 {
	dx := (x - g.CX) / g.RX
	dy := (y - g.CY) / g.RY
	return dx*dx + dy*dy
}

// IsInsideBody reports whether (x, y) lies on or inside the ellipse.
func (g Geometry) IsInsideBody(x, y float64) bool {
	return g.normDistSq(x, y) <= 1
}

// IsInExclusionZone reports whether (x, y) is too close to the center.
func (g Geometry) IsInExclusionZone(x, y float64) bool {
	return g.NormDist(x, y) < g.ExclusionRatio
}

// QuadrantOf splits the image through the ellipse center. Smaller y is upper.
func (g Geometry) QuadrantOf(x, y float64) Quadrant {
	left := x < g.CX
	up := y < g.CY
	switch {
	case left && up:
		return UpperLeft
	case up:
		return UpperRight
	case left:
		return LowerLeft
	default:
		return LowerRight
	}
}

// ResolveQuadrant maps any site onto a quadrant.
func (g Geometry) ResolveQuadrant(s Site) Quadrant {
	if q, ok := s.Quadrant(); ok {
		return q
	}
	x, y, _ := s.Point()
	return g.QuadrantOf(x, y)
}

// QuadrantCenter is the representative point of q, halfway between the
// ellipse center and its bounding box corner.
func (g Geometry) QuadrantCenter(q Quadrant) (x, y float64) {
	x, y = g.CX+g.RX/2, g.CY+g.RY/2
	if q == UpperLeft || q == LowerLeft {
		x = g.CX - g.RX/2
	}
	if q == UpperLeft || q == UpperRight {
		y = g.CY - g.RY/2
	}
	return x, y
}

// SitePoint maps any site onto a point, using QuadrantCenter for quadrant
// sites.
func (g Geometry) SitePoint(s Site) (x, y float64) {
	if px, py, ok := s.Point(); ok {
		return px, py
	}
	q, _ := s.Quadrant()
	return g.QuadrantCenter(q)
}
