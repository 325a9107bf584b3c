package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/DannyKomjathy/sports-analytic-platform/internal/circuitbreaker"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/fetch"
)

// Machine-readable error codes returned in the "error" field
const (
	CodeConfiguration       = "configuration_error"
	CodeUpstreamTimeout     = "upstream_timeout"
	CodeUpstream            = "upstream_error"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeNoData              = "no_data"
	CodeNotFound            = "not_found"
	CodeBadRequest          = "bad_request"
	CodeRateLimited         = "rate_limited"
	CodeInternal            = "internal_error"
)

const genericInternalMessage = "An unexpected error occurred"

var (
	errNoData     = errors.New("no NBA games are currently available")
	errTeamAbsent = errors.New("team not found")
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error              string   `json:"error"`
	Message            string   `json:"message"`
	AvailableEndpoints []string `json:"availableEndpoints,omitempty"`
}

// classify maps a failure onto a status code and response body. In
// production, 500 bodies never carry internal details.
func classify(err error, production bool) (int, ErrorResponse) {
	var (
		cfgErr     *fetch.ConfigError
		timeoutErr *fetch.TimeoutError
		upErr      *fetch.UpstreamError
	)

	switch {
	case errors.As(err, &cfgErr):
		msg := fmt.Sprintf("Server misconfigured: %s is not set", cfgErr.Field)
		if production {
			msg = "Server configuration error"
		}
		return http.StatusInternalServerError, ErrorResponse{Error: CodeConfiguration, Message: msg}

	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout, ErrorResponse{
			Error:   CodeUpstreamTimeout,
			Message: fmt.Sprintf("Odds provider did not respond within %v", timeoutErr.Timeout),
		}

	case errors.As(err, &upErr):
		status := upErr.StatusCode
		if status < 400 {
			status = http.StatusBadGateway
		}
		return status, ErrorResponse{Error: CodeUpstream, Message: upErr.Message}

	case errors.Is(err, circuitbreaker.ErrOpen):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:   CodeUpstreamUnavailable,
			Message: "Odds provider is temporarily unavailable, please retry shortly",
		}

	case errors.Is(err, errNoData):
		return http.StatusNotFound, ErrorResponse{Error: CodeNoData, Message: "No NBA games are currently available"}

	case errors.Is(err, errTeamAbsent):
		return http.StatusNotFound, ErrorResponse{Error: CodeNotFound, Message: err.Error()}
	}

	msg := err.Error()
	if production {
		msg = genericInternalMessage
	}
	return http.StatusInternalServerError, ErrorResponse{Error: CodeInternal, Message: msg}
}

// upstreamFailureKind labels a fetch failure for metrics, and reports
// whether it counts against the upstream's health.
func upstreamFailureKind(err error) (string, bool) {
	var (
		cfgErr     *fetch.ConfigError
		timeoutErr *fetch.TimeoutError
		upErr      *fetch.UpstreamError
	)

	switch {
	case errors.As(err, &cfgErr):
		return "config", false
	case errors.As(err, &timeoutErr):
		return "timeout", true
	case errors.As(err, &upErr):
		return fmt.Sprintf("status_%d", upErr.StatusCode), upErr.Temporary()
	default:
		return "transport", true
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.Warnf("Error encoding response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err, s.cfg.IsProduction())

	entry := logrus.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"status": status,
		"code":   body.Error,
	})
	if status >= http.StatusInternalServerError {
		entry.Errorf("Request failed: %v", err)
	} else {
		entry.Warnf("Request failed: %v", err)
	}

	respondJSON(w, status, body)
}
