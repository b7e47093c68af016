package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedDocument indicates a persisted or imported document that cannot
// be used as a history.
var ErrMalformedDocument = errors.New("malformed injection document")

// Document is the persisted and exported shape of the whole history.
type Document struct {
	Injections []Injection `json:"injections"`

	// Skipped lists records that were dropped while decoding. It is never
	// written back.
	Skipped []SkippedRecord `json:"-"`
}

// SkippedRecord is an element of "injections" that could not be used.
type SkippedRecord struct {
	Index int
	ID    string
	Err   error
}

// DecodeDocument parses a document. It fails only when the JSON is invalid or
// "injections" is absent or not an array. Elements that cannot be decoded
// into an injection are left out and reported in Skipped.
func DecodeDocument(data []byte) (Document, error) {
	var raw struct {
		Injections json.RawMessage `json:"injections"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw.Injections), []byte("[")) {
		return Document{}, fmt.Errorf("%w: injections must be an array", ErrMalformedDocument)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw.Injections, &elems); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	doc := Document{Injections: make([]Injection, 0, len(elems))}
	for i, elem := range elems {
		var inj Injection
		if err := json.Unmarshal(elem, &inj); err != nil {
			doc.Skipped = append(doc.Skipped, SkippedRecord{Index: i, ID: recordID(elem), Err: err})
			continue
		}
		doc.Injections = append(doc.Injections, inj)
	}
	return doc, nil
}

// recordID pulls the id out of an element that failed to decode, if it has one.
func recordID(elem json.RawMessage) string {
	var head struct {
		ID any `json:"id"`
	}
	if json.Unmarshal(elem, &head) != nil || head.ID == nil {
		return ""
	}
	if s, ok := head.ID.(string); ok {
		return s
	}
	return fmt.Sprint(head.ID)
}

// MarshalJSON always writes an array, even for an empty history.
func (d Document) MarshalJSON() ([]byte, error) {
	injs := d.Injections
	if injs == nil {
		injs = []Injection{}
	}
	return json.Marshal(struct {
		Injections []Injection `json:"injections"`
	}{injs})
}

type injectionJSON struct {
	ID       string   `json:"id"`
	Date     string   `json:"date"`
	Dose     doseText `json:"dose"`
	Notes    string   `json:"notes"`
	Quadrant *string  `json:"quadrant,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Weight   *float64 `json:"weight"`
}

// doseText accepts both "7.5" and 7.5.
type doseText string

func (d *doseText) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = doseText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("dose: %w", err)
	}
	*d = doseText(n.String())
	return nil
}

// MarshalJSON writes the site as "quadrant" or as legacy "x"/"y".
func (inj Injection) MarshalJSON() ([]byte, error) {
	out := injectionJSON{
		ID:     inj.ID,
		Date:   FormatDate(inj.Date),
		Dose:   doseText(inj.Dose),
		Notes:  inj.Notes,
		Weight: inj.Weight,
	}
	if q, ok := inj.Site.Quadrant(); ok {
		s := string(q)
		out.Quadrant = &s
	} else if x, y, ok := inj.Site.Point(); ok {
		out.X, out.Y = &x, &y
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a record, preferring "quadrant" over legacy "x"/"y".
func (inj *Injection) UnmarshalJSON(b []byte) error {
	var in injectionJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if strings.TrimSpace(in.ID) == "" {
		return errors.New("injection without id")
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return fmt.Errorf("injection %s: %w", in.ID, err)
	}

	var site Site
	switch {
	case in.Quadrant != nil:
		q, err := ParseQuadrant(*in.Quadrant)
		if err != nil {
			return fmt.Errorf("injection %s: %w", in.ID, err)
		}
		site = QuadrantSite(q)
	case in.X != nil && in.Y != nil:
		site = PointSite(*in.X, *in.Y)
	default:
		return fmt.Errorf("injection %s: no quadrant or x/y", in.ID)
	}

	*inj = Injection{
		ID:     in.ID,
		Date:   date,
		Site:   site,
		Dose:   Dose(in.Dose),
		Weight: in.Weight,
		Notes:  in.Notes,
	}
	return nil
}

var localDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate reads RFC 3339 timestamps and zone-less local forms such as
// "2024-05-01T09:30" or "2024-05-01".
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// FormatDate writes t as RFC 3339.
func FormatDate(t time.Time) string {
	return t.Format(time.RFC3339)
}
