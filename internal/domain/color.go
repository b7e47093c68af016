package domain

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGBA is an 8-bit color with straight alpha.
type RGBA struct {
	R, G, B, A uint8
}

var (
	excludedColor = RGBA{R: 199, G: 92, B: 92, A: 60}
	outsideColor  = RGBA{}
)

const (
	heatSaturation = 0.55
	heatLightness  = 0.50
)

// ScoreColor maps a score to its heatmap color: red (0°) for the least
// recommended spots through green (120°) for the most. Lower scores are
// drawn more opaque.
func ScoreColor(s Score) RGBA {
	switch {
	case s.IsExcluded():
		return excludedColor
	case s.IsOutside():
		return outsideColor
	}
	v, _ := s.Value()
	hue := math.Max(0, math.Min(1, v)) * 120
	r, g, b := colorful.Hsl(hue, heatSaturation, heatLightness).RGB255()
	return RGBA{R: r, G: g, B: b, A: uint8(math.Round(75 - v*30))}
}
