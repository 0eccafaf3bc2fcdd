package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ConfidenceTier is the marker color tier of a detection.
type ConfidenceTier string

const (
	TierLow    ConfidenceTier = "low"
	TierMedium ConfidenceTier = "medium"
	TierHigh   ConfidenceTier = "high"
)

// HighConfidenceThreshold is the percentage at and above which a detection is high confidence.
const HighConfidenceThreshold = 80

// ClassifyConfidence maps a confidence percentage to a tier:
// <50 low, 50–79 medium, ≥80 high. NaN classifies as low.
func ClassifyConfidence(c float64) ConfidenceTier {
	switch {
	case math.IsNaN(c) || c < 50:
		return TierLow
	case c < HighConfidenceThreshold:
		return TierMedium
	default:
		return TierHigh
	}
}

// Confidence is either a percentage (MODIS) or a category (VIIRS).
type Confidence struct {
	Percent  float64
	Category string // "l", "n" or "h"; empty when Percent is set
}

// PercentConfidence builds a numeric confidence.
func PercentConfidence(p float64) Confidence {
	return Confidence{Percent: p}
}

// CategoryConfidence builds a categorical confidence.
func CategoryConfidence(c string) Confidence {
	return Confidence{Category: c}
}

// IsCategorical reports whether the confidence came as a VIIRS category.
func (c Confidence) IsCategorical() bool {
	return c.Category != ""
}

// Tier classifies the confidence.
func (c Confidence) Tier() ConfidenceTier {
	switch c.Category {
	case "":
		return ClassifyConfidence(c.Percent)
	case "h":
		return TierHigh
	case "n":
		return TierMedium
	default:
		return TierLow
	}
}

// String renders the confidence the way FIRMS wrote it.
func (c Confidence) String() string {
	if c.IsCategorical() {
		return c.Category
	}
	return strconv.FormatFloat(c.Percent, 'f', -1, 64)
}

func (c Confidence) MarshalJSON() ([]byte, error) {
	if c.IsCategorical() {
		return json.Marshal(c.Category)
	}
	return json.Marshal(c.Percent)
}

func (c *Confidence) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := parseConfidence(s)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	var p float64
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("confidence: %w", err)
	}
	*c = PercentConfidence(p)
	return nil
}

// FireDetection is one observed fire or thermal anomaly.
type FireDetection struct {
	ID         string         `json:"id"`
	Latitude   float64        `json:"latitude"`
	Longitude  float64        `json:"longitude"`
	AcquiredAt time.Time      `json:"acquired_at"`
	Confidence Confidence     `json:"confidence"`
	Tier       ConfidenceTier `json:"confidence_tier"`
	FRP        *float64       `json:"frp,omitempty"`        // fire radiative power, MW
	Brightness *float64       `json:"brightness,omitempty"` // brightness temperature, K
	Satellite  string         `json:"satellite,omitempty"`
	Instrument string         `json:"instrument,omitempty"`
	DayNight   string         `json:"daynight,omitempty"`
	Source     Source         `json:"source"`
}

// HighConfidence reports whether the detection is in the high tier.
func (d FireDetection) HighConfidence() bool {
	return d.Tier == TierHigh
}

// AcqDate returns the acquisition date as YYYY-MM-DD.
func (d FireDetection) AcqDate() string {
	return d.AcquiredAt.UTC().Format(DateLayout)
}

// AcqTime returns the acquisition time in FIRMS HHMM form.
func (d FireDetection) AcqTime() string {
	return d.AcquiredAt.UTC().Format("1504")
}

// generateID produces a deterministic ID from the detection's key fields.
func generateID(source Source, lat, lon float64, acqDate, acqTime string) string {
	input := fmt.Sprintf("%s|%.5f|%.5f|%s|%s", source, lat, lon, acqDate, acqTime)
	hash := sha256.Sum256([]byte(input))
	return "fire-" + hex.EncodeToString(hash[:8])
}
