package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RiskSelectableLimit is how many leading detections may be sent for risk analysis.
const RiskSelectableLimit = 50

// RiskLevel is the coarse outcome of a risk assessment.
type RiskLevel string

const (
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskExtreme RiskLevel = "EXTREME"
)

// FireSnapshot is the detection part of a risk prompt.
type FireSnapshot struct {
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	Confidence string   `json:"confidence"`
	FRPMW      *float64 `json:"frp_mw"`
	Brightness *float64 `json:"brightness"`
	Date       string   `json:"date"`
	Time       string   `json:"time"`
}

// RiskAssumptions are the fixed environmental conditions assumed by the prompt.
type RiskAssumptions struct {
	WindKMH                float64 `json:"wind_kmh"`
	HumidityPercent        float64 `json:"humidity_percent"`
	Terrain                string  `json:"terrain"`
	DistanceToPopulationKM float64 `json:"distance_to_population_km"`
}

// FireContext is sent to the risk analyzer as the user message.
type FireContext struct {
	Fire        FireSnapshot    `json:"fire"`
	Assumptions RiskAssumptions `json:"assumptions"`
}

// DefaultRiskAssumptions are the conditions assumed for every prompt.
var DefaultRiskAssumptions = RiskAssumptions{
	WindKMH:                30,
	HumidityPercent:        20,
	Terrain:                "vegetation",
	DistanceToPopulationKM: 5,
}

// NewFireContext builds the prompt context for a detection.
func NewFireContext(d FireDetection) FireContext {
	return FireContext{
		Fire: FireSnapshot{
			Lat:        d.Latitude,
			Lon:        d.Longitude,
			Confidence: d.Confidence.String(),
			FRPMW:      d.FRP,
			Brightness: d.Brightness,
			Date:       d.AcqDate(),
			Time:       d.AcqTime(),
		},
		Assumptions: DefaultRiskAssumptions,
	}
}

// RiskAssessment is the structured answer of a risk analyzer.
type RiskAssessment struct {
	RiskLevel            RiskLevel `json:"risk_level"`
	SpreadProbability12h float64   `json:"spread_probability_12h"`
	PrimaryRiskFactors   []string  `json:"primary_risk_factors"`
	RecommendedActions   []string  `json:"recommended_actions"`
}

// RiskReport wraps an assessment with the raw model output and timing.
type RiskReport struct {
	DetectionID string          `json:"detection_id"`
	Assessment  *RiskAssessment `json:"assessment,omitempty"`
	// Parsed is false when the model output was not a valid assessment; Raw
	// then holds the text as returned.
	Parsed  bool          `json:"parsed"`
	Raw     string        `json:"raw"`
	Latency time.Duration `json:"latency_ns"`
}

// RiskAnalyzer returns the raw model output for a fire context.
type RiskAnalyzer interface {
	AnalyzeFire(ctx context.Context, fc FireContext) (string, error)
}

// ParseRiskAssessment decodes and validates model output. Markdown code
// fences around the JSON are tolerated.
func ParseRiskAssessment(raw string) (RiskAssessment, error) {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)

	var a RiskAssessment
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return RiskAssessment{}, fmt.Errorf("decode risk assessment: %w", err)
	}
	a.RiskLevel = RiskLevel(strings.ToUpper(strings.TrimSpace(string(a.RiskLevel))))
	switch a.RiskLevel {
	case RiskLow, RiskMedium, RiskHigh, RiskExtreme:
	default:
		return RiskAssessment{}, fmt.Errorf("unknown risk level %q", a.RiskLevel)
	}
	if a.SpreadProbability12h < 0 || a.SpreadProbability12h > 1 {
		return RiskAssessment{}, fmt.Errorf("spread probability %g outside [0, 1]", a.SpreadProbability12h)
	}
	return a, nil
}

// AssessRisk runs the analyzer for one detection and times it.
func AssessRisk(ctx context.Context, d FireDetection, analyzer RiskAnalyzer) (RiskReport, error) {
	start := clock.Now()
	raw, err := analyzer.AnalyzeFire(ctx, NewFireContext(d))
	if err != nil {
		return RiskReport{}, fmt.Errorf("analyze fire %s: %w", d.ID, err)
	}
	report := RiskReport{
		DetectionID: d.ID,
		Raw:         raw,
		Latency:     clock.Since(start),
	}
	if a, err := ParseRiskAssessment(raw); err == nil {
		report.Assessment = &a
		report.Parsed = true
	}
	return report, nil
}
