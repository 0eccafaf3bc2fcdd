package domain

import (
	"errors"
	"fmt"
)

// Validation failures. These are reported before any request is sent.
var (
	ErrMissingAPIKey      = errors.New("FIRMS API key is required")
	ErrInvalidBoundingBox = errors.New("invalid bounding box")
	ErrInvalidDateRange   = errors.New("invalid date range")
	ErrUnsupportedSource  = errors.New("unsupported satellite source")
)

// Upstream failures.
var (
	// ErrAuthentication means FIRMS rejected the MAP_KEY (invalid or not yet activated).
	ErrAuthentication = errors.New("FIRMS authentication failed")
	// ErrNetwork covers unreachable hosts, timeouts, rate limiting and 5xx responses.
	ErrNetwork = errors.New("FIRMS request failed")
)

// ErrSuperseded is returned when a newer fetch in the same session replaced
// the one in flight.
var ErrSuperseded = errors.New("fetch superseded by a newer request")

// PartialParseError reports rows dropped while parsing a payload. It is not
// fatal: the fetch still succeeds with the remaining records.
type PartialParseError struct {
	Dropped int
	// Lines holds the record numbers (header = 1) of the first few dropped rows.
	Lines []int
}

func (e *PartialParseError) Error() string {
	return fmt.Sprintf("dropped %d malformed rows", e.Dropped)
}

// maxReportedLines bounds PartialParseError.Lines.
const maxReportedLines = 20

func (e *PartialParseError) add(line int) {
	e.Dropped++
	if len(e.Lines) < maxReportedLines {
		e.Lines = append(e.Lines, line)
	}
}

// Merge folds another report into e.
func (e *PartialParseError) Merge(other *PartialParseError) {
	if other == nil {
		return
	}
	e.Dropped += other.Dropped
	for _, l := range other.Lines {
		if len(e.Lines) >= maxReportedLines {
			break
		}
		e.Lines = append(e.Lines, l)
	}
}

// ErrorKind returns a stable machine-readable name for err.
func ErrorKind(err error) string {
	var partial *PartialParseError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingAPIKey):
		return "MissingAPIKey"
	case errors.Is(err, ErrInvalidBoundingBox):
		return "InvalidBoundingBox"
	case errors.Is(err, ErrInvalidDateRange):
		return "InvalidDateRange"
	case errors.Is(err, ErrUnsupportedSource):
		return "UnsupportedSource"
	case errors.Is(err, ErrAuthentication):
		return "AuthenticationError"
	case errors.Is(err, ErrNetwork):
		return "NetworkError"
	case errors.Is(err, ErrSuperseded):
		return "Superseded"
	case errors.As(err, &partial):
		return "PartialParseError"
	default:
		return "InternalError"
	}
}

// IsValidationError reports whether err is a local input validation failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingAPIKey) ||
		errors.Is(err, ErrInvalidBoundingBox) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrUnsupportedSource)
}

// Remediation returns the suggested next action shown to the user for err.
func Remediation(err error) string {
	var partial *PartialParseError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingAPIKey):
		return "Enter a NASA FIRMS MAP_KEY."
	case errors.Is(err, ErrInvalidBoundingBox):
		return "Check the bounding box: min must not exceed max, latitude within [-90, 90], longitude within [-180, 180]."
	case errors.Is(err, ErrInvalidDateRange):
		return "Pick a start date on or before the end date."
	case errors.Is(err, ErrUnsupportedSource):
		return "Choose one of " + sourceList() + "."
	case errors.Is(err, ErrAuthentication):
		return "Re-check your FIRMS MAP_KEY; new keys can take a few minutes to activate."
	case errors.Is(err, ErrNetwork):
		return "FIRMS is unreachable or busy; retry later."
	case errors.Is(err, ErrSuperseded):
		return "A newer request replaced this one; no action needed."
	case errors.As(err, &partial):
		return "Some rows were malformed and skipped; results may be incomplete."
	default:
		return "Unexpected error; retry later."
	}
}
