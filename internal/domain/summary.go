package domain

import "time"

// DailyCount is one entry of the per-day detection histogram.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// SummaryStatistics aggregates a detection collection.
type SummaryStatistics struct {
	Total          int                    `json:"total"`
	HighConfidence int                    `json:"high_confidence"`
	MeanFRP        *float64               `json:"mean_frp,omitempty"`
	FRPCount       int                    `json:"frp_count"`
	Tiers          map[ConfidenceTier]int `json:"tiers"`
	Daily          []DailyCount           `json:"daily"`
}

// Summarize reduces records into summary statistics. The daily histogram
// has one entry per day of dates, zero-count days included. Records dated
// outside dates are counted in the totals but not in the histogram.
func Summarize(records []FireDetection, dates DateRange) SummaryStatistics {
	s := SummaryStatistics{
		Total: len(records),
		Tiers: map[ConfidenceTier]int{TierLow: 0, TierMedium: 0, TierHigh: 0},
	}

	days := dates.Days()
	start := truncateDay(dates.Start)
	s.Daily = make([]DailyCount, days)
	for i := range days {
		s.Daily[i].Date = start.AddDate(0, 0, i).Format(DateLayout)
	}

	var frpSum float64
	for _, rec := range records {
		tier := rec.Tier
		if tier == "" {
			tier = rec.Confidence.Tier()
		}
		s.Tiers[tier]++
		if tier == TierHigh {
			s.HighConfidence++
		}
		if rec.FRP != nil {
			frpSum += *rec.FRP
			s.FRPCount++
		}
		if idx := dayIndex(start, rec.AcquiredAt); idx >= 0 && idx < days {
			s.Daily[idx].Count++
		}
	}

	if s.FRPCount > 0 {
		mean := frpSum / float64(s.FRPCount)
		s.MeanFRP = &mean
	}
	return s
}

func dayIndex(start, t time.Time) int {
	d := truncateDay(t)
	if d.Before(start) {
		return -1
	}
	return int(d.Sub(start).Hours() / 24)
}
