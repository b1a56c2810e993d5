// Package handler implements the HTTP surface: job token minting, health,
// active-session count, and the static runtime registry. Adapted from the
// teacher's internal/handler/handler.go JSON-response idiom
// (sendJSON/sendError) onto this system's endpoints (spec section 6).
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/codr/codr/internal/config"
	"github.com/codr/codr/internal/runtimeinfo"
	"github.com/codr/codr/internal/token"
	"github.com/codr/codr/internal/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SessionCounter reports the number of live gateway sessions.
type SessionCounter interface {
	ActiveSessions() int64
}

// Handler serves the non-websocket HTTP endpoints.
type Handler struct {
	Cfg      *config.Config
	Tokens   *token.Service
	Sessions SessionCounter
	Logger   *logrus.Entry
}

type createJobResponse struct {
	JobID     string `json:"job_id"`
	JobToken  string `json:"job_token"`
	ExpiresAt string `json:"expires_at"`
}

// CreateJob handles POST /api/jobs/create: mints a job id and its
// single-use token. The job record itself is created later, during the
// gateway's Executing phase once code/language are known (spec section
// 12).
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	jobID := uuid.New().String()

	minted, err := h.Tokens.Mint(jobID)
	if err != nil {
		h.Logger.WithError(err).Error("failed to mint job token")
		h.sendError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.sendJSON(w, http.StatusOK, createJobResponse{
		JobID:     minted.JobID,
		JobToken:  minted.Token,
		ExpiresAt: minted.ExpiresAt.Format("2006-01-02T15:04:05.999999999"),
	})
}

// GetRuntimes handles GET /api/runtimes.
func (h *Handler) GetRuntimes(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, runtimeinfo.List())
}

// WebSocketStatusResponse is the body of GET /api/websocket/status.
type WebSocketStatusResponse struct {
	ActiveSessions int64 `json:"active_sessions"`
}

// GetWebSocketStatus handles GET /api/websocket/status.
func (h *Handler) GetWebSocketStatus(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, WebSocketStatusResponse{ActiveSessions: h.Sessions.ActiveSessions()})
}

// HealthHandler serves GET /health; busHealthy is injected so this
// package doesn't need to import the bus package directly.
func (h *Handler) HealthHandler(busHealthy func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		busStatus := "connected"
		code := http.StatusOK
		if !busHealthy() {
			status = "degraded"
			busStatus = "disconnected"
			code = http.StatusServiceUnavailable
		}
		h.sendJSON(w, code, types.HealthStatus{Status: status, Service: "codr", Bus: busStatus})
	}
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.WithError(err).Error("failed to encode response")
	}
}

func (h *Handler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, types.ErrorResponse{Message: message, Code: status})
}
