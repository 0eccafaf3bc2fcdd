package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindAndRemediation(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{ErrMissingAPIKey, "MissingAPIKey"},
		{fmt.Errorf("%w: min_lat 5 > max_lat 1", ErrInvalidBoundingBox), "InvalidBoundingBox"},
		{ErrInvalidDateRange, "InvalidDateRange"},
		{ErrUnsupportedSource, "UnsupportedSource"},
		{fmt.Errorf("window 1: %w", ErrAuthentication), "AuthenticationError"},
		{fmt.Errorf("window 2: %w", ErrNetwork), "NetworkError"},
		{ErrSuperseded, "Superseded"},
		{&PartialParseError{Dropped: 2}, "PartialParseError"},
		{errors.New("disk on fire"), "InternalError"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.kind, ErrorKind(tt.err))
			assert.NotEmpty(t, Remediation(tt.err))
		})
	}

	assert.Empty(t, ErrorKind(nil))
	assert.Empty(t, Remediation(nil))
	assert.Contains(t, Remediation(ErrUnsupportedSource), string(SourceMODIS))
}

func TestPartialParseError_Merge(t *testing.T) {
	a := &PartialParseError{}
	for i := range maxReportedLines - 1 {
		a.add(i + 2)
	}
	b := &PartialParseError{}
	b.add(100)
	b.add(101)

	a.Merge(b)
	a.Merge(nil)
	assert.Equal(t, maxReportedLines+1, a.Dropped)
	assert.Len(t, a.Lines, maxReportedLines)
	assert.Equal(t, 100, a.Lines[maxReportedLines-1])
	assert.Equal(t, "dropped 21 malformed rows", a.Error())
}
