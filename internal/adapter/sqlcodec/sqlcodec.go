// Package sqlcodec maps injections to and from the nullable columns shared by
// the SQL-backed repositories.
package sqlcodec

import (
	"database/sql"
	"fmt"

	"injtracker/internal/domain"
)

// Row holds the columns of one injections row besides its timestamp, whose
// representation differs per database.
type Row struct {
	ID       string
	Quadrant sql.NullString
	X, Y     sql.NullFloat64
	Dose     string
	Weight   sql.NullFloat64
	Notes    string
}

// Encode splits inj into column values.
func Encode(inj domain.Injection) Row {
	r := Row{ID: inj.ID, Dose: string(inj.Dose), Notes: inj.Notes}
	if q, ok := inj.Site.Quadrant(); ok {
		r.Quadrant = sql.NullString{String: string(q), Valid: true}
	} else if x, y, ok := inj.Site.Point(); ok {
		r.X = sql.NullFloat64{Float64: x, Valid: true}
		r.Y = sql.NullFloat64{Float64: y, Valid: true}
	}
	if inj.Weight != nil {
		r.Weight = sql.NullFloat64{Float64: *inj.Weight, Valid: true}
	}
	return r
}

// Decode rebuilds the injection, minus its date.
func (r Row) Decode() (domain.Injection, error) {
	inj := domain.Injection{ID: r.ID, Dose: domain.Dose(r.Dose), Notes: r.Notes}
	switch {
	case r.Quadrant.Valid:
		q, err := domain.ParseQuadrant(r.Quadrant.String)
		if err != nil {
			return domain.Injection{}, fmt.Errorf("injection %s: %w", r.ID, err)
		}
		inj.Site = domain.QuadrantSite(q)
	case r.X.Valid && r.Y.Valid:
		inj.Site = domain.PointSite(r.X.Float64, r.Y.Float64)
	default:
		return domain.Injection{}, fmt.Errorf("injection %s: row has no site", r.ID)
	}
	if r.Weight.Valid {
		w := r.Weight.Float64
		inj.Weight = &w
	}
	return inj, nil
}
