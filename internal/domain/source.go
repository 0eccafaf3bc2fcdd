package domain

import (
	"fmt"
	"strings"
)

// Source identifies a FIRMS near-real-time product.
type Source string

const (
	SourceVIIRSNOAA20 Source = "VIIRS_NOAA20_NRT"
	SourceVIIRSSNPP   Source = "VIIRS_SNPP_NRT"
	SourceMODIS       Source = "MODIS_NRT"
)

// Sources lists the supported products in display order.
func Sources() []Source {
	return []Source{SourceVIIRSNOAA20, SourceVIIRSSNPP, SourceMODIS}
}

// ParseSource validates a source name.
func ParseSource(s string) (Source, error) {
	src := Source(strings.TrimSpace(s))
	if !src.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSource, s)
	}
	return src, nil
}

// Valid reports whether s is one of the supported products.
func (s Source) Valid() bool {
	switch s {
	case SourceVIIRSNOAA20, SourceVIIRSSNPP, SourceMODIS:
		return true
	default:
		return false
	}
}

// Instrument returns the instrument family, "VIIRS" or "MODIS".
func (s Source) Instrument() string {
	if s == SourceMODIS {
		return "MODIS"
	}
	return "VIIRS"
}

// BrightnessColumn is the CSV column carrying the primary brightness temperature.
func (s Source) BrightnessColumn() string {
	if s == SourceMODIS {
		return "brightness"
	}
	return "bright_ti4"
}

func sourceList() string {
	names := make([]string, 0, 3)
	for _, s := range Sources() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
