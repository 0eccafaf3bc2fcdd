// Package domain models NASA FIRMS active-fire detection data.
//
// # Data Source
//
// Detections come from the Fire Information for Resource Management System
// (FIRMS) area API at https://firms.modaps.eosdis.nasa.gov/api/area/. A call
// names a MAP_KEY, a source product, an area, a day range and a start date:
//
//	/api/area/csv/<MAP_KEY>/<SOURCE>/<west,south,east,north>/<DAY_RANGE>/<YYYY-MM-DD>
//
// DAY_RANGE is limited to 1..5 days per call, so longer ranges are split into
// windows by [DateRange.Windows]. The response body is CSV with a header row.
//
// # Column Conventions
//
// VIIRS products (VIIRS_NOAA20_NRT, VIIRS_SNPP_NRT):
//
//	latitude,longitude,bright_ti4,scan,track,acq_date,acq_time,satellite,
//	instrument,confidence,version,bright_ti5,frp,daynight
//
// MODIS products (MODIS_NRT):
//
//	latitude,longitude,brightness,scan,track,acq_date,acq_time,satellite,
//	instrument,confidence,version,bright_t31,frp,daynight
//
// Columns are located by header name, never by position.
//
// Time format:
//
//	acq_date is YYYY-MM-DD. acq_time is HHMM in UTC, but leading zeros are
//	often dropped: "142" = 01:42, "5" = 00:05.
//
// Confidence:
//
//	MODIS reports a percentage 0–100. VIIRS reports a category:
//	"l" (low), "n" (nominal), "h" (high). Both are mapped to three tiers
//	used for marker colors:
//
//	  Percentage: <50 low | 50–79 medium | ≥80 high
//	  Category:   l low   | n medium     | h high
//
// Fire radiative power (frp) is in megawatts. A blank frp cell means the
// value is absent, which is distinct from malformed.
//
// # Normalization
//
// Malformed rows are dropped rather than failing the fetch. Surviving
// records are filtered to the requested box and dates, ordered earliest
// first, and capped at [DisplayLimit]. Summary statistics are computed over
// the capped sequence; the daily histogram always spans the whole requested
// range.
//
// # ID Generation
//
// Detection IDs are deterministic SHA-256 hashes of
// source|lat|lon|acq_date|acq_time, so the same detection fetched twice (or
// published twice) carries the same ID. See [generateID].
package domain
