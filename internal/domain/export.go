package domain

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ExportColumns is the header written by WriteCSV.
var ExportColumns = []string{
	"id", "latitude", "longitude", "acq_date", "acq_time",
	"confidence", "confidence_tier", "frp", "brightness",
	"satellite", "instrument", "daynight", "source",
}

// WriteCSV flattens records into delimited text with a header row.
func WriteCSV(w io.Writer, records []FireDetection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	row := make([]string, len(ExportColumns))
	for i := range records {
		rec := &records[i]
		row[0] = rec.ID
		row[1] = formatCoord(rec.Latitude)
		row[2] = formatCoord(rec.Longitude)
		row[3] = rec.AcqDate()
		row[4] = rec.AcqTime()
		row[5] = rec.Confidence.String()
		row[6] = string(rec.Tier)
		row[7] = formatOptional(rec.FRP)
		row[8] = formatOptional(rec.Brightness)
		row[9] = rec.Satellite
		row[10] = rec.Instrument
		row[11] = rec.DayNight
		row[12] = string(rec.Source)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
