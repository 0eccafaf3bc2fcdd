package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/firms-fire-service/internal/domain"
)

type createSessionRequest struct {
	APIKey string `json:"api_key" validate:"required"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// fetchRequest uses pointers so a 0 coordinate is distinguishable from a
// missing one.
type fetchRequest struct {
	MinLat    *float64 `json:"min_lat" validate:"required"`
	MinLon    *float64 `json:"min_lon" validate:"required"`
	MaxLat    *float64 `json:"max_lat" validate:"required"`
	MaxLon    *float64 `json:"max_lon" validate:"required"`
	StartDate string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	Source    string   `json:"source" validate:"required"`
}

func (f fetchRequest) toDomain(apiKey string) (domain.QueryRequest, error) {
	dates, err := domain.ParseDateRange(f.StartDate, f.EndDate)
	if err != nil {
		return domain.QueryRequest{}, err
	}
	return domain.QueryRequest{
		APIKey: apiKey,
		BoundingBox: domain.BoundingBox{
			MinLat: *f.MinLat,
			MinLon: *f.MinLon,
			MaxLat: *f.MaxLat,
			MaxLon: *f.MaxLon,
		},
		DateRange: dates,
		Source:    domain.Source(strings.TrimSpace(f.Source)),
	}, nil
}

// fieldError maps a structural validation failure onto the domain error of
// the field it concerns.
func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	detail := fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag())
	switch fe.Field() {
	case "APIKey":
		return domain.ErrMissingAPIKey
	case "MinLat", "MinLon", "MaxLat", "MaxLon":
		return fmt.Errorf("%w: %s", domain.ErrInvalidBoundingBox, detail)
	case "StartDate", "EndDate":
		return fmt.Errorf("%w: %s", domain.ErrInvalidDateRange, detail)
	case "Source":
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedSource, detail)
	}
	return err
}

type center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type fetchResponse struct {
	domain.FetchResult
	SessionID   string `json:"session_id"`
	DroppedRows int    `json:"dropped_rows"`
	Center      center `json:"center"`
	Message     string `json:"message,omitempty"`
	Warning     string `json:"warning,omitempty"`
}

func newFetchResponse(sessionID string, res domain.FetchResult) fetchResponse {
	lat, lon := res.Query.BoundingBox.Center()
	out := fetchResponse{
		FetchResult: res,
		SessionID:   sessionID,
		DroppedRows: res.DroppedRows(),
		Center:      center{Lat: lat, Lon: lon},
	}
	if out.Records == nil {
		out.Records = []domain.FireDetection{}
	}
	if res.Empty() {
		out.Message = "no fires found"
	}
	if res.Partial != nil {
		out.Warning = domain.Remediation(res.Partial)
	}
	return out
}

type detectionResponse struct {
	Index     int                  `json:"index"`
	Detection domain.FireDetection `json:"detection"`
	Place     domain.Place         `json:"place"`
	// RiskSelectable is true for the leading detections eligible for risk assessment.
	RiskSelectable bool `json:"risk_selectable"`
}

type riskResponse struct {
	DetectionID string                 `json:"detection_id"`
	Assessment  *domain.RiskAssessment `json:"assessment,omitempty"`
	Parsed      bool                   `json:"parsed"`
	Raw         string                 `json:"raw"`
	LatencyMS   int64                  `json:"latency_ms"`
}

func newRiskResponse(r domain.RiskReport) riskResponse {
	return riskResponse{
		DetectionID: r.DetectionID,
		Assessment:  r.Assessment,
		Parsed:      r.Parsed,
		Raw:         r.Raw,
		LatencyMS:   r.Latency.Milliseconds(),
	}
}

type sourceInfo struct {
	ID         domain.Source `json:"id"`
	Instrument string        `json:"instrument"`
}
