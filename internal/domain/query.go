package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// DateLayout is the calendar date format used by FIRMS and the API.
const DateLayout = "2006-01-02"

// BoundingBox is a rectangular latitude/longitude filter in degrees.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Validate checks the coordinate domain and axis ordering.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.MinLat, b.MinLon, b.MaxLat, b.MaxLon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: coordinates must be finite", ErrInvalidBoundingBox)
		}
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MaxLat < -90 || b.MinLat > 90 {
		return fmt.Errorf("%w: latitude must be within [-90, 90]", ErrInvalidBoundingBox)
	}
	if b.MinLon < -180 || b.MaxLon > 180 || b.MaxLon < -180 || b.MinLon > 180 {
		return fmt.Errorf("%w: longitude must be within [-180, 180]", ErrInvalidBoundingBox)
	}
	if b.MinLat > b.MaxLat {
		return fmt.Errorf("%w: min latitude %g exceeds max latitude %g", ErrInvalidBoundingBox, b.MinLat, b.MaxLat)
	}
	if b.MinLon > b.MaxLon {
		return fmt.Errorf("%w: min longitude %g exceeds max longitude %g", ErrInvalidBoundingBox, b.MinLon, b.MaxLon)
	}
	return nil
}

// rect builds the s2 rectangle spanned by the box. The longitude interval is
// taken as written (min to max) and never wraps the antimeridian.
func (b BoundingBox) rect() s2.Rect {
	lo := s2.LatLngFromDegrees(b.MinLat, b.MinLon)
	hi := s2.LatLngFromDegrees(b.MaxLat, b.MaxLon)
	return s2.Rect{
		Lat: r1.Interval{Lo: lo.Lat.Radians(), Hi: hi.Lat.Radians()},
		Lng: s1.IntervalFromEndpoints(lo.Lng.Radians(), hi.Lng.Radians()),
	}
}

// Contains reports whether the point lies in the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	r := b.rect()
	p := s2.LatLngFromDegrees(lat, lon)
	return r.Lat.Contains(p.Lat.Radians()) && r.Lng.Contains(p.Lng.Radians())
}

// Center returns the midpoint of the box, used to center the map.
func (b BoundingBox) Center() (lat, lon float64) {
	c := b.rect().Center()
	return c.Lat.Degrees(), c.Lng.Degrees()
}

// FIRMSArea renders the box as the FIRMS "west,south,east,north" area parameter.
func (b BoundingBox) FIRMSArea() string {
	parts := []string{
		formatCoord(b.MinLon),
		formatCoord(b.MinLat),
		formatCoord(b.MaxLon),
		formatCoord(b.MaxLat),
	}
	return strings.Join(parts, ",")
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseBoundingBox parses "minLat,minLon,maxLat,maxLon". It does not validate
// the values; call Validate for that.
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: want minLat,minLon,maxLat,maxLon, got %q", ErrInvalidBoundingBox, s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: %q is not a number", ErrInvalidBoundingBox, p)
		}
		vals[i] = v
	}
	return BoundingBox{MinLat: vals[0], MinLon: vals[1], MaxLat: vals[2], MaxLon: vals[3]}, nil
}

// DateRange is an inclusive range of UTC calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both ends to UTC midnight.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: truncateDay(start), End: truncateDay(end)}
}

// ParseDateRange parses two YYYY-MM-DD dates.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, strings.TrimSpace(start))
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start date %q", ErrInvalidDateRange, start)
	}
	e, err := time.Parse(DateLayout, strings.TrimSpace(end))
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: end date %q", ErrInvalidDateRange, end)
	}
	return NewDateRange(s, e), nil
}

// LastDays returns the range ending today (per the package clock) and starting
// n days earlier.
func LastDays(n int) DateRange {
	today := truncateDay(clock.Now())
	return DateRange{Start: today.AddDate(0, 0, -n), End: today}
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Validate rejects zero dates and reversed ranges.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidDateRange)
	}
	if truncateDay(r.Start).After(truncateDay(r.End)) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidDateRange,
			r.Start.Format(DateLayout), r.End.Format(DateLayout))
	}
	return nil
}

// CheckSpan rejects ranges longer than maxDays. A non-positive maxDays
// disables the check.
func (r DateRange) CheckSpan(maxDays int) error {
	if maxDays > 0 && r.Days() > maxDays {
		return fmt.Errorf("%w: %d days requested, at most %d allowed", ErrInvalidDateRange, r.Days(), maxDays)
	}
	return nil
}

// Days returns the number of calendar days in the range, end inclusive.
func (r DateRange) Days() int {
	s, e := truncateDay(r.Start), truncateDay(r.End)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

// Contains reports whether t falls on a calendar day within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := truncateDay(t)
	return !d.Before(truncateDay(r.Start)) && !d.After(truncateDay(r.End))
}

// Windows splits the range into consecutive sub-ranges of at most maxDays days.
func (r DateRange) Windows(maxDays int) []DateRange {
	if maxDays < 1 {
		maxDays = 1
	}
	total := r.Days()
	if total == 0 {
		return nil
	}
	start := truncateDay(r.Start)
	windows := make([]DateRange, 0, (total+maxDays-1)/maxDays)
	for offset := 0; offset < total; offset += maxDays {
		n := min(maxDays, total-offset)
		ws := start.AddDate(0, 0, offset)
		windows = append(windows, DateRange{Start: ws, End: ws.AddDate(0, 0, n-1)})
	}
	return windows
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}{r.Start.Format(DateLayout), r.End.Format(DateLayout)})
}

// QueryRequest is one user fetch: credentials plus search parameters.
type QueryRequest struct {
	APIKey      string      `json:"-"`
	BoundingBox BoundingBox `json:"bounding_box"`
	DateRange   DateRange   `json:"date_range"`
	Source      Source      `json:"source"`
}

// Validate checks the request in order: key, box, dates, source.
func (q QueryRequest) Validate() error {
	if strings.TrimSpace(q.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if err := q.BoundingBox.Validate(); err != nil {
		return err
	}
	if err := q.DateRange.Validate(); err != nil {
		return err
	}
	if !q.Source.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedSource, string(q.Source))
	}
	return nil
}
