package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/firms-fire-service/internal/domain"
	"github.com/couchcryptid/firms-fire-service/internal/session"
)

const maxBodyBytes = 1 << 16

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	sources := domain.Sources()
	out := make([]sourceInfo, len(sources))
	for i, src := range sources {
		out[i] = sourceInfo{ID: src, Instrument: src.Instrument()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if err := s.decode(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	sess := s.deps.Sessions.Create(body.APIKey)
	s.deps.Metrics.SessionsActive.Set(float64(s.deps.Sessions.Len()))
	s.logger.Info("session created", "session_id", sess.ID)
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: sess.ID})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Sessions.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	s.deps.Metrics.SessionsActive.Set(float64(s.deps.Sessions.Len()))
	s.logger.Info("session closed", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body fetchRequest
	if err := s.decode(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	req, err := body.toDomain(sess.APIKey())
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, gen := sess.Begin(r.Context())
	res, err := s.deps.Fetcher.Fetch(ctx, req)
	if err != nil {
		sess.Abandon(gen)
		writeError(w, err)
		return
	}
	if err := sess.Commit(gen, req, &res); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newFetchResponse(sess.ID, res))
}

func (s *Server) handleDetections(w http.ResponseWriter, r *http.Request) {
	sess, res, err := s.lastResult(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newFetchResponse(sess.ID, res))
}

func (s *Server) handleDetectionsCSV(w http.ResponseWriter, r *http.Request) {
	_, res, err := s.lastResult(r)
	if err != nil {
		writeError(w, err)
		return
	}

	name := fmt.Sprintf("firms_%s_%s_%s.csv",
		res.Query.Source,
		res.Query.DateRange.Start.Format(domain.DateLayout),
		res.Query.DateRange.End.Format(domain.DateLayout),
	)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if err := domain.WriteCSV(w, res.Records); err != nil {
		s.logger.Warn("csv export interrupted", "error", err)
	}
}

func (s *Server) handleDetection(w http.ResponseWriter, r *http.Request) {
	_, res, err := s.lastResult(r)
	if err != nil {
		writeError(w, err)
		return
	}
	idx, err := detectionIndex(r, len(res.Records))
	if err != nil {
		writeError(w, err)
		return
	}

	d := res.Records[idx]
	writeJSON(w, http.StatusOK, detectionResponse{
		Index:          idx,
		Detection:      d,
		Place:          domain.LocateDetection(r.Context(), d, s.deps.Geocoder, s.logger),
		RiskSelectable: idx < domain.RiskSelectableLimit,
	})
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	if s.deps.Analyzer == nil {
		writeError(w, errRiskDisabled)
		return
	}
	_, res, err := s.lastResult(r)
	if err != nil {
		writeError(w, err)
		return
	}
	idx, err := detectionIndex(r, len(res.Records))
	if err != nil {
		writeError(w, err)
		return
	}
	if idx >= domain.RiskSelectableLimit {
		writeError(w, errNotSelectable)
		return
	}

	report, err := domain.AssessRisk(r.Context(), res.Records[idx], s.deps.Analyzer)
	if err != nil {
		s.deps.Metrics.RiskRequests.WithLabelValues("error").Inc()
		s.logger.Warn("risk assessment failed", "detection_id", res.Records[idx].ID, "error", err)
		writeError(w, fmt.Errorf("%w: %w", errRiskFailed, err))
		return
	}

	outcome := "parsed"
	if !report.Parsed {
		outcome = "unparsed"
	}
	s.deps.Metrics.RiskRequests.WithLabelValues(outcome).Inc()
	s.deps.Metrics.RiskDuration.Observe(report.Latency.Seconds())
	writeJSON(w, http.StatusOK, newRiskResponse(report))
}

func (s *Server) session(r *http.Request) (*session.Session, error) {
	return s.deps.Sessions.Get(chi.URLParam(r, "id"))
}

func (s *Server) lastResult(r *http.Request) (*session.Session, domain.FetchResult, error) {
	sess, err := s.session(r)
	if err != nil {
		return nil, domain.FetchResult{}, err
	}
	res, ok := sess.Last()
	if !ok {
		return nil, domain.FetchResult{}, errNoResult
	}
	return sess, res, nil
}

// decode reads a JSON body into v and validates its structure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadJSON, err)
	}
	if err := s.validate.Struct(v); err != nil {
		return fieldError(err)
	}
	return nil
}

func detectionIndex(r *http.Request, n int) (int, error) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || idx < 0 || idx >= n {
		return 0, errBadIndex
	}
	return idx, nil
}
