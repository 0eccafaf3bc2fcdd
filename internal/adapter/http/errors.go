package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/couchcryptid/firms-fire-service/internal/domain"
	"github.com/couchcryptid/firms-fire-service/internal/session"
)

var (
	errBadJSON        = errors.New("request body is not valid JSON")
	errBadIndex       = errors.New("detection index out of range")
	errNoResult       = errors.New("no fetch has completed in this session")
	errNotSelectable  = errors.New("only the leading detections can be assessed")
	errRiskDisabled   = errors.New("risk assessment is not configured")
	errRiskFailed     = errors.New("risk assessment failed")
	errSessionMissing = session.ErrNotFound
)

type errorBody struct {
	Error       string `json:"error"`
	Kind        string `json:"kind"`
	Remediation string `json:"remediation"`
}

// statusFor maps an error to its HTTP status, kind and remediation.
func statusFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, errSessionMissing):
		return http.StatusNotFound, "SessionNotFound", "Create a new session with your FIRMS MAP_KEY."
	case errors.Is(err, errBadJSON):
		return http.StatusBadRequest, "InvalidRequest", "Send a JSON object body."
	case errors.Is(err, errBadIndex):
		return http.StatusNotFound, "DetectionNotFound", "Pick an index from the current result."
	case errors.Is(err, errNoResult):
		return http.StatusNotFound, "NoResult", "Run a fetch first."
	case errors.Is(err, errNotSelectable):
		return http.StatusBadRequest, "NotSelectable", "Pick one of the first 50 detections."
	case errors.Is(err, errRiskDisabled):
		return http.StatusNotImplemented, "RiskDisabled", "Set CEREBRAS_API_KEY to enable risk assessment."
	case errors.Is(err, errRiskFailed):
		return http.StatusBadGateway, "RiskError", "The risk model is unavailable; retry later."
	case domain.IsValidationError(err):
		return http.StatusBadRequest, domain.ErrorKind(err), domain.Remediation(err)
	case errors.Is(err, domain.ErrAuthentication):
		return http.StatusUnauthorized, domain.ErrorKind(err), domain.Remediation(err)
	case errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict, domain.ErrorKind(err), domain.Remediation(err)
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusServiceUnavailable, domain.ErrorKind(err), domain.Remediation(err)
	default:
		return http.StatusInternalServerError, domain.ErrorKind(err), domain.Remediation(err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, kind, remediation := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg, Kind: kind, Remediation: remediation})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // response already committed
}
