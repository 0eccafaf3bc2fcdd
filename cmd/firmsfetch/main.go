// Command firmsfetch runs a single FIRMS query and writes the normalized
// detections as CSV. A summary goes to stderr.
//
// Usage:
//
//	FIRMS_API_KEY=... go run ./cmd/firmsfetch \
//	  -source VIIRS_NOAA20_NRT \
//	  -bbox -10,-70,5,-50 \
//	  -start 2023-08-01 -end 2023-08-07 \
//	  -out fires.csv
//
// With -file, a previously downloaded FIRMS CSV payload is normalized instead
// and no API key is needed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/couchcryptid/firms-fire-service/internal/adapter/firms"
	"github.com/couchcryptid/firms-fire-service/internal/config"
	"github.com/couchcryptid/firms-fire-service/internal/domain"
	"github.com/couchcryptid/firms-fire-service/internal/observability"
	"github.com/couchcryptid/firms-fire-service/internal/pipeline"
)

const defaultDays = 3

type options struct {
	source string
	bbox   string
	start  string
	end    string
	out    string
	file   string
	limit  int
}

func main() {
	var opts options
	flag.StringVar(&opts.source, "source", string(domain.SourceVIIRSNOAA20), "satellite source: "+sourceList())
	flag.StringVar(&opts.bbox, "bbox", "", "bounding box minLat,minLon,maxLat,maxLon")
	flag.StringVar(&opts.start, "start", "", "first day YYYY-MM-DD (default: 3 days before today)")
	flag.StringVar(&opts.end, "end", "", "last day YYYY-MM-DD (default: today)")
	flag.StringVar(&opts.out, "out", "", "output CSV path (default stdout)")
	flag.StringVar(&opts.file, "file", "", "normalize a local FIRMS CSV payload instead of calling the API")
	flag.IntVar(&opts.limit, "limit", domain.DisplayLimit, "maximum number of detections written")
	flag.Parse()

	if opts.bbox == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(opts); code != 0 {
		os.Exit(code)
	}
}

func run(opts options) int {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load .env: %v\n", err)
		return 1
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}

	req, err := buildRequest(opts, os.Getenv("FIRMS_API_KEY"))
	if err != nil {
		return fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var res domain.FetchResult
	if opts.file != "" {
		res, err = normalizeFile(opts.file, req, opts.limit)
	} else {
		logger := observability.NewLogger(cfg)
		metrics := observability.NewMetrics()
		client := firms.NewClient(cfg.FIRMSBaseURL, cfg.FIRMSTimeout, metrics, logger)
		p := pipeline.New(client, nil, nil, logger, metrics, pipeline.Options{
			MaxDays:      cfg.FIRMSMaxDays,
			MaxRangeDays: cfg.FIRMSMaxRange,
			MaxRetries:   cfg.FetchMaxRetries,
			DisplayLimit: opts.limit,
		})
		res, err = p.Fetch(ctx, req)
	}
	if err != nil {
		return fail(err)
	}

	if err := writeRecords(opts.out, res.Records); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: write output: %v\n", err)
		return 1
	}
	printSummary(os.Stderr, res)
	return 0
}

func buildRequest(opts options, apiKey string) (domain.QueryRequest, error) {
	box, err := domain.ParseBoundingBox(opts.bbox)
	if err != nil {
		return domain.QueryRequest{}, err
	}
	source, err := domain.ParseSource(opts.source)
	if err != nil {
		return domain.QueryRequest{}, err
	}

	dates := domain.LastDays(defaultDays)
	if opts.start != "" || opts.end != "" {
		start, end := opts.start, opts.end
		if start == "" {
			start = dates.Start.Format(domain.DateLayout)
		}
		if end == "" {
			end = dates.End.Format(domain.DateLayout)
		}
		if dates, err = domain.ParseDateRange(start, end); err != nil {
			return domain.QueryRequest{}, err
		}
	}

	req := domain.QueryRequest{APIKey: apiKey, BoundingBox: box, DateRange: dates, Source: source}
	if opts.file != "" {
		// Local payloads need no key.
		if err := box.Validate(); err != nil {
			return domain.QueryRequest{}, err
		}
		return req, dates.Validate()
	}
	return req, req.Validate()
}

func normalizeFile(path string, req domain.QueryRequest, limit int) (domain.FetchResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.FetchResult{}, err
	}
	defer f.Close()

	parsed, err := domain.ParseCSV(f, req.Source)
	if err != nil {
		return domain.FetchResult{}, err
	}
	res := domain.Normalize(parsed.Records, req, limit)
	res.Partial = parsed.Partial
	return res, nil
}

func writeRecords(path string, records []domain.FireDetection) error {
	if path == "" {
		return domain.WriteCSV(os.Stdout, records)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := domain.WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(w io.Writer, res domain.FetchResult) {
	q := res.Query
	fmt.Fprintf(w, "=== FIRMS %s %s ===\n", q.Source, q.DateRange)
	if res.Empty() {
		fmt.Fprintln(w, "no fires found")
	}
	s := res.Summary
	fmt.Fprintf(w, "  %-22s %d\n", "detections", s.Total)
	fmt.Fprintf(w, "  %-22s %d\n", "high confidence", s.HighConfidence)
	if s.MeanFRP != nil {
		fmt.Fprintf(w, "  %-22s %.2f MW (%d records)\n", "mean FRP", *s.MeanFRP, s.FRPCount)
	} else {
		fmt.Fprintf(w, "  %-22s n/a\n", "mean FRP")
	}
	fmt.Fprintf(w, "  %-22s low=%d medium=%d high=%d\n", "tiers",
		s.Tiers[domain.TierLow], s.Tiers[domain.TierMedium], s.Tiers[domain.TierHigh])

	if res.Truncated {
		fmt.Fprintf(w, "\ntruncated: showing the earliest %d of %d detections\n", len(res.Records), res.RawCount)
	}
	if res.OutOfBounds > 0 {
		fmt.Fprintf(w, "discarded %d rows outside the box or dates\n", res.OutOfBounds)
	}
	if res.Partial != nil {
		fmt.Fprintf(w, "warning: %s\n", domain.Remediation(res.Partial))
	}

	fmt.Fprintln(w, "\nper day:")
	for _, d := range s.Daily {
		fmt.Fprintf(w, "  %s %6d\n", d.Date, d.Count)
	}
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "error (%s): %v\n", domain.ErrorKind(err), err)
	if r := domain.Remediation(err); r != "" {
		fmt.Fprintf(os.Stderr, "%s\n", r)
	}
	return 1
}

func sourceList() string {
	names := make([]string, 0, len(domain.Sources()))
	for _, s := range domain.Sources() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
