package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"injtracker/internal/domain"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return now.Add(-time.Duration(n) * 24 * time.Hour)
}

func atQuadrant(id string, q domain.Quadrant, age int) domain.Injection {
	return domain.Injection{ID: id, Date: daysAgo(age), Site: domain.QuadrantSite(q), Dose: "5"}
}

func atPoint(id string, x, y float64, age int) domain.Injection {
	return domain.Injection{ID: id, Date: daysAgo(age), Site: domain.PointSite(x, y), Dose: "5"}
}

func defaultInfluence() domain.Influence {
	return domain.DefaultEngine().Influence
}

func TestAgeDays(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want int
	}{
		{"same instant", now, 0},
		{"23 hours ago", now.Add(-23 * time.Hour), 0},
		{"exactly one day", now.Add(-24 * time.Hour), 1},
		{"ten and a half days", now.Add(-252 * time.Hour), 10},
		{"future clamps to zero", now.Add(72 * time.Hour), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.AgeDays(tc.date, now))
		})
	}
}

func TestTimeFactor_MonotonicDecay(t *testing.T) {
	const recovery = 28
	prev := domain.TimeFactor(0, recovery)
	assert.Equal(t, 1.0, prev)
	for age := 1; age <= 40; age++ {
		tf := domain.TimeFactor(age, recovery)
		assert.LessOrEqual(t, tf, prev, "age %d", age)
		if age >= recovery {
			assert.Zero(t, tf, "age %d", age)
		}
		prev = tf
	}
	assert.InDelta(t, 0.5, domain.TimeFactor(14, recovery), 1e-12)
}

func TestPointScore_EmptyHistory(t *testing.T) {
	in := defaultInfluence()
	for _, p := range [][2]float64{{0.4, 0.6}, {0.6, 0.7}, {0.5, 0.48}, {0.42, 0.78}} {
		s := in.PointScore(nil, now, p[0], p[1])
		v, ok := s.Value()
		require.True(t, ok, "point %v", p)
		assert.Equal(t, 1.0, v)
	}
}

func TestPointScore_ExclusionPrecedence(t *testing.T) {
	in := defaultInfluence()
	g := in.Geometry
	history := []domain.Injection{atPoint("a", g.CX, g.CY, 0)}

	for _, h := range [][]domain.Injection{nil, history} {
		s := in.PointScore(h, now, g.CX, g.CY)
		assert.True(t, s.IsExcluded())
		_, ok := s.Value()
		assert.False(t, ok)

		s = in.PointScore(h, now, g.CX+g.RX*0.2, g.CY)
		assert.True(t, s.IsExcluded())
	}
}

func TestPointScore_OutsidePrecedence(t *testing.T) {
	in := defaultInfluence()
	history := []domain.Injection{atPoint("a", 0.1, 0.1, 0)}

	for _, h := range [][]domain.Injection{nil, history} {
		assert.True(t, in.PointScore(h, now, 0.1, 0.1).IsOutside())
		assert.True(t, in.PointScore(h, now, 0.9, 0.63).IsOutside())
		assert.Equal(t, "outside", in.PointScore(h, now, 0, 0).Kind())
	}
}

func TestPointScore_SameAndFarPoint(t *testing.T) {
	in := defaultInfluence()
	require.Equal(t, 0.45, in.Sigma)
	history := []domain.Injection{atPoint("a", 0.4, 0.6, 0)}

	v, ok := in.PointScore(history, now, 0.4, 0.6).Value()
	require.True(t, ok)
	assert.InDelta(t, 0.0, v, 1e-9)

	v, ok = in.PointScore(history, now, 0.62, 0.70).Value()
	require.True(t, ok)
	assert.InDelta(t, 1.0, v, 0.01)
}

func TestPointScore_HealedRecordHasNoInfluence(t *testing.T) {
	in := defaultInfluence()
	history := []domain.Injection{atPoint("a", 0.4, 0.6, 28), atPoint("b", 0.4, 0.6, 90)}

	v, ok := in.PointScore(history, now, 0.4, 0.6).Value()
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestPointScore_FutureRecordCountsAsToday(t *testing.T) {
	in := defaultInfluence()
	future := atPoint("a", 0.4, 0.6, 0)
	future.Date = now.Add(48 * time.Hour)

	v, _ := in.PointScore([]domain.Injection{future}, now, 0.4, 0.6).Value()
	assert.InDelta(t, 0.0, v, 1e-9)
}

func TestPointScore_WorstCaseDominance(t *testing.T) {
	in := defaultInfluence()
	first := atPoint("a", 0.42, 0.55, 3)
	seconds := []domain.Injection{
		atPoint("b", 0.58, 0.75, 0),
		atPoint("c", 0.43, 0.56, 20),
		atQuadrant("d", domain.LowerLeft, 1),
		atPoint("e", 0.6, 0.5, 40),
	}

	for gy := 0; gy <= 20; gy++ {
		for gx := 0; gx <= 20; gx++ {
			x, y := float64(gx)/20, float64(gy)/20
			one, ok := in.PointScore([]domain.Injection{first}, now, x, y).Value()
			if !ok {
				continue
			}
			for _, second := range seconds {
				two, _ := in.PointScore([]domain.Injection{first, second}, now, x, y).Value()
				assert.LessOrEqual(t, two, one, "point (%v, %v) record %s", x, y, second.ID)
			}
		}
	}
}

func TestPointScore_OrderIndependent(t *testing.T) {
	in := defaultInfluence()
	a := atPoint("a", 0.42, 0.55, 3)
	b := atPoint("b", 0.45, 0.58, 1)

	ab := in.PointScore([]domain.Injection{a, b}, now, 0.44, 0.57)
	ba := in.PointScore([]domain.Injection{b, a}, now, 0.44, 0.57)
	assert.Equal(t, ab, ba)
}

func TestPointScore_QuadrantRecordUsesQuadrantCenter(t *testing.T) {
	in := defaultInfluence()
	x, y := in.Geometry.QuadrantCenter(domain.UpperRight)
	history := []domain.Injection{atQuadrant("a", domain.UpperRight, 0)}

	v, ok := in.PointScore(history, now, x, y).Value()
	require.True(t, ok)
	assert.InDelta(t, 0.0, v, 1e-9)
}

func TestQuadrantScore_EmptyHistory(t *testing.T) {
	in := defaultInfluence()
	for _, q := range domain.Quadrants {
		assert.Equal(t, 1.0, in.QuadrantScore(nil, now, q))
	}
}

func TestQuadrantScore_MinAgeWins(t *testing.T) {
	in := defaultInfluence()
	history := []domain.Injection{
		atQuadrant("a", domain.LowerRight, 20),
		atQuadrant("b", domain.LowerRight, 5),
	}
	assert.InDelta(t, 5.0/28.0, in.QuadrantScore(history, now, domain.LowerRight), 1e-12)
	assert.Equal(t, 1.0, in.QuadrantScore(history, now, domain.UpperLeft))
}

func TestQuadrantScore_CapsAtOne(t *testing.T) {
	in := defaultInfluence()
	history := []domain.Injection{atQuadrant("a", domain.UpperLeft, 60)}
	assert.Equal(t, 1.0, in.QuadrantScore(history, now, domain.UpperLeft))
}

func TestQuadrantScore_ResolvesLegacyPoints(t *testing.T) {
	in := defaultInfluence()
	// (0.4, 0.6) is left of and above the center.
	history := []domain.Injection{atPoint("a", 0.4, 0.6, 7)}
	assert.InDelta(t, 0.25, in.QuadrantScore(history, now, domain.UpperLeft), 1e-12)
	assert.Equal(t, 1.0, in.QuadrantScore(history, now, domain.LowerLeft))
}
