package domain

import (
	"sort"
	"time"
)

// DisplayLimit is the maximum number of detections returned for display.
const DisplayLimit = 2000

// FetchResult is what a fetch hands back to the caller.
type FetchResult struct {
	Query     QueryRequest    `json:"query"`
	Records   []FireDetection `json:"records"`
	Truncated bool            `json:"truncated"`
	RawCount  int             `json:"raw_count"`
	// OutOfBounds counts parsed rows discarded for lying outside the box or dates.
	OutOfBounds int                `json:"out_of_bounds"`
	Partial     *PartialParseError `json:"-"`
	Summary     SummaryStatistics  `json:"summary"`
	FetchedAt   time.Time          `json:"fetched_at"`
}

// DroppedRows returns the number of malformed rows skipped during parsing.
func (r FetchResult) DroppedRows() int {
	if r.Partial == nil {
		return 0
	}
	return r.Partial.Dropped
}

// Empty reports whether the fetch found no fires.
func (r FetchResult) Empty() bool {
	return len(r.Records) == 0
}

// Normalize post-filters parsed records to the request's box and dates,
// orders them earliest first, caps them at limit and computes the summary.
// The input slice is not modified.
func Normalize(records []FireDetection, req QueryRequest, limit int) FetchResult {
	if limit <= 0 {
		limit = DisplayLimit
	}

	kept := make([]FireDetection, 0, len(records))
	for _, rec := range records {
		if !req.BoundingBox.Contains(rec.Latitude, rec.Longitude) || !req.DateRange.Contains(rec.AcquiredAt) {
			continue
		}
		kept = append(kept, rec)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if !kept[i].AcquiredAt.Equal(kept[j].AcquiredAt) {
			return kept[i].AcquiredAt.Before(kept[j].AcquiredAt)
		}
		return kept[i].ID < kept[j].ID
	})

	res := FetchResult{
		Query:       req,
		RawCount:    len(kept),
		OutOfBounds: len(records) - len(kept),
		FetchedAt:   clock.Now(),
	}
	if len(kept) > limit {
		kept = kept[:limit:limit]
		res.Truncated = true
	}
	res.Records = kept
	res.Summary = Summarize(kept, req.DateRange)
	return res
}
