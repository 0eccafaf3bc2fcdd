package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// requiredColumns must be present in every FIRMS CSV header.
var requiredColumns = []string{"latitude", "longitude", "acq_date", "acq_time", "confidence"}

// ParseResult is the outcome of parsing one FIRMS payload.
type ParseResult struct {
	Records []FireDetection
	// Partial is non-nil when malformed rows were dropped.
	Partial *PartialParseError
}

// ParseCSV decodes a FIRMS CSV payload into detections. Malformed rows are
// dropped and reported in ParseResult.Partial. An empty payload yields no
// records and no error; a header lacking a required column is an error.
func ParseCSV(r io.Reader, source Source) (ParseResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ParseResult{}, nil
	}
	if err != nil {
		return ParseResult{}, fmt.Errorf("read FIRMS header: %w", err)
	}

	cols := indexColumns(header)
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return ParseResult{}, fmt.Errorf("FIRMS header missing %q column", name)
		}
	}

	var (
		records []FireDetection
		partial PartialParseError
		line    = 1
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				partial.add(line)
				continue
			}
			return ParseResult{}, fmt.Errorf("read FIRMS row %d: %w", line, err)
		}
		if isBlankRow(row) {
			continue
		}
		rec, err := parseRow(row, cols, source)
		if err != nil {
			partial.add(line)
			continue
		}
		records = append(records, rec)
	}

	res := ParseResult{Records: records}
	if partial.Dropped > 0 {
		res.Partial = &partial
	}
	return res, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		cols[name] = i
	}
	return cols
}

func isBlankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// field returns the trimmed cell for a column, or "" when absent.
func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseRow(row []string, cols map[string]int, source Source) (FireDetection, error) {
	lat, err := parseCoordinate(field(row, cols, "latitude"), 90)
	if err != nil {
		return FireDetection{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := parseCoordinate(field(row, cols, "longitude"), 180)
	if err != nil {
		return FireDetection{}, fmt.Errorf("longitude: %w", err)
	}

	acqDate := field(row, cols, "acq_date")
	day, err := time.Parse(DateLayout, acqDate)
	if err != nil {
		return FireDetection{}, fmt.Errorf("acq_date: %w", err)
	}
	acqTime := field(row, cols, "acq_time")
	acquired, err := parseHHMM(day, acqTime)
	if err != nil {
		return FireDetection{}, fmt.Errorf("acq_time: %w", err)
	}

	conf, err := parseConfidence(field(row, cols, "confidence"))
	if err != nil {
		return FireDetection{}, err
	}

	frp, err := parseOptionalFloat(field(row, cols, "frp"))
	if err != nil {
		return FireDetection{}, fmt.Errorf("frp: %w", err)
	}
	brightness, err := parseOptionalFloat(field(row, cols, source.BrightnessColumn()))
	if err != nil {
		return FireDetection{}, fmt.Errorf("brightness: %w", err)
	}

	instrument := field(row, cols, "instrument")
	if instrument == "" {
		instrument = source.Instrument()
	}

	return FireDetection{
		ID:         generateID(source, lat, lon, acquired.Format(DateLayout), acquired.Format("1504")),
		Latitude:   lat,
		Longitude:  lon,
		AcquiredAt: acquired,
		Confidence: conf,
		Tier:       conf.Tier(),
		FRP:        frp,
		Brightness: brightness,
		Satellite:  field(row, cols, "satellite"),
		Instrument: instrument,
		DayNight:   field(row, cols, "daynight"),
		Source:     source,
	}, nil
}

func parseCoordinate(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.Abs(v) > limit {
		return 0, fmt.Errorf("%q out of range", s)
	}
	return v, nil
}

// parseOptionalFloat returns nil for a blank cell and an error for a malformed one.
func parseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%q is not finite", s)
	}
	return &v, nil
}

// parseConfidence accepts a percentage or a VIIRS category letter/word.
func parseConfidence(s string) (Confidence, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "l", "low":
		return CategoryConfidence("l"), nil
	case "n", "nominal":
		return CategoryConfidence("n"), nil
	case "h", "high":
		return CategoryConfidence("h"), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Confidence{}, fmt.Errorf("confidence: %q is neither a percentage nor l/n/h", s)
	}
	return PercentConfidence(v), nil
}

// parseHHMM combines a date with an acq_time value. FIRMS drops leading
// zeros, so "142" is 01:42 and "5" is 00:05.
func parseHHMM(day time.Time, hhmm string) (time.Time, error) {
	hhmm = strings.TrimSpace(hhmm)
	if hhmm == "" || len(hhmm) > 4 {
		return time.Time{}, fmt.Errorf("%q is not HHMM", hhmm)
	}
	n, err := strconv.Atoi(hhmm)
	if err != nil || n < 0 {
		return time.Time{}, fmt.Errorf("%q is not HHMM", hhmm)
	}
	hour, mins := n/100, n%100
	if hour > 23 || mins > 59 {
		return time.Time{}, fmt.Errorf("%q is not a valid time of day", hhmm)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, mins, 0, 0, time.UTC), nil
}
