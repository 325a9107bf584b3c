package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/DannyKomjathy/sports-analytic-platform/internal/model"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/probability"
)

// Briefing answers that are not produced by the generator
const (
	briefingBadRequest = "Please select two different teams to generate a briefing."
	briefingNoData     = "Odds data is unavailable right now, so no briefing can be generated."
)

// handleHealth is a simple liveness endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"timestamp":   s.now().UTC().Format(time.RFC3339),
		"version":     s.cfg.Version,
		"environment": s.cfg.Environment,
	})
}

func (s *Server) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"apiVersion": "v1",
		"timestamp":  s.now().UTC().Format(time.RFC3339),
	})
}

// handleNBAData serves the team view map
func (s *Server) handleNBAData(w http.ResponseWriter, r *http.Request) {
	teams, err := s.loadTeams(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, teams)
}

// handleWinProbability compares two teams by their current moneylines.
// Query params: teamA, teamB (normalized team ids)
func (s *Server) handleWinProbability(w http.ResponseWriter, r *http.Request) {
	idA := strings.TrimSpace(r.URL.Query().Get("teamA"))
	idB := strings.TrimSpace(r.URL.Query().Get("teamB"))
	if idA == "" || idB == "" {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   CodeBadRequest,
			Message: "Query parameters teamA and teamB are required",
		})
		return
	}
	if idA == idB {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   CodeBadRequest,
			Message: "teamA and teamB must be different teams",
		})
		return
	}

	teams, err := s.loadTeams(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	a, b, err := pickTeams(teams, idA, idB)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, probability.ForTeams(a, b))
}

type briefingRequest struct {
	TeamA string `json:"teamA"`
	TeamB string `json:"teamB"`
}

type briefingResponse struct {
	Briefing string `json:"briefing"`
}

// handleBriefing always answers 200 with text that can be shown as-is
func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	var req briefingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil ||
		req.TeamA == "" || req.TeamB == "" || req.TeamA == req.TeamB {
		respondJSON(w, http.StatusOK, briefingResponse{Briefing: briefingBadRequest})
		return
	}

	teams, err := s.loadTeams(r.Context())
	if err != nil {
		logrus.WithField("path", r.URL.Path).Warnf("Briefing skipped, team data unavailable: %v", err)
		respondJSON(w, http.StatusOK, briefingResponse{Briefing: briefingNoData})
		return
	}

	a, b, err := pickTeams(teams, req.TeamA, req.TeamB)
	if err != nil {
		respondJSON(w, http.StatusOK, briefingResponse{Briefing: briefingBadRequest})
		return
	}

	respondJSON(w, http.StatusOK, briefingResponse{
		Briefing: s.briefing.Generate(r.Context(), a, b),
	})
}

// handleStatus provides detailed service status information
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":      "operational",
		"uptime":      s.now().Sub(s.startTime).Round(time.Second).String(),
		"version":     s.cfg.Version,
		"environment": s.cfg.Environment,
		"cache": map[string]interface{}{
			"enabled":    s.cache.Enabled(),
			"entries":    s.cache.Len(),
			"ttlSeconds": int(s.cache.TTL().Seconds()),
		},
		"circuitBreaker": "disabled",
		"rateLimit":      s.limiter != nil,
	}

	if s.breaker != nil {
		status["circuitBreaker"] = s.breaker.GetState()
	}

	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleLegacyRedirect(w http.ResponseWriter, r *http.Request) {
	target := nbaDataEndpoint
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusMovedPermanently)
}

// handleNotFound answers unknown API routes with JSON and everything else
// with the single-page app, when one is configured.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		respondJSON(w, http.StatusNotFound, ErrorResponse{
			Error:              CodeNotFound,
			Message:            fmt.Sprintf("No API endpoint matches %s %s", r.Method, r.URL.Path),
			AvailableEndpoints: availableEndpoints,
		})
		return
	}

	if s.cfg.StaticDir == "" || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		http.NotFound(w, r)
		return
	}

	// Real assets are served directly, any other path falls back to the
	// app shell so client-side routing works.
	name := filepath.Join(s.cfg.StaticDir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		http.ServeFile(w, r, name)
		return
	}

	index := filepath.Join(s.cfg.StaticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, index)
}

func pickTeams(teams model.TeamMap, idA, idB string) (model.TeamView, model.TeamView, error) {
	a, ok := teams[idA]
	if !ok {
		return model.TeamView{}, model.TeamView{}, fmt.Errorf("%w: %s", errTeamAbsent, idA)
	}
	b, ok := teams[idB]
	if !ok {
		return model.TeamView{}, model.TeamView{}, fmt.Errorf("%w: %s", errTeamAbsent, idB)
	}
	return a, b, nil
}
