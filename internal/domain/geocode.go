package domain

import (
	"context"
	"log/slog"
)

// Place describes where a detection is, as far as the geocoder knows.
type Place struct {
	Name             string  `json:"name,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
	// Source is "reverse" when the geocoder answered, "failed" on error and
	// "none" when no geocoder is configured or nothing was found.
	Source string `json:"source"`
}

// LocateDetection reverse geocodes a detection. A nil geocoder or a failed
// lookup degrades to a Place without a name.
func LocateDetection(ctx context.Context, d FireDetection, geocoder Geocoder, logger *slog.Logger) Place {
	if geocoder == nil {
		return Place{Source: "none"}
	}

	result, err := geocoder.ReverseGeocode(ctx, d.Latitude, d.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"detection_id", d.ID,
			"lat", d.Latitude,
			"lon", d.Longitude,
			"error", err,
		)
		return Place{Source: "failed"}
	}
	if result.FormattedAddress == "" {
		return Place{Source: "none"}
	}
	return Place{
		Name:             result.PlaceName,
		FormattedAddress: result.FormattedAddress,
		Confidence:       result.Confidence,
		Source:           "reverse",
	}
}
