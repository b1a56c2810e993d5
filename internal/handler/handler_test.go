package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codr/codr/internal/token"
	"github.com/sirupsen/logrus"
)

type fakeSessions struct{ count int64 }

func (f *fakeSessions) ActiveSessions() int64 { return f.count }

func newTestHandler(sessions int64) *Handler {
	logger := logrus.NewEntry(logrus.New())
	return &Handler{
		Tokens:   token.New(nil, "test-secret", 15, logger),
		Sessions: &fakeSessions{count: sessions},
		Logger:   logger,
	}
}

func TestCreateJobMintsTokenAndJobID(t *testing.T) {
	h := newTestHandler(0)
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/create", nil)
	rec := httptest.NewRecorder()

	h.CreateJob(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body createJobResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.JobID == "" || body.JobToken == "" || body.ExpiresAt == "" {
		t.Fatalf("expected all fields populated, got %+v", body)
	}
}

func TestGetRuntimesReturnsAllLanguages(t *testing.T) {
	h := newTestHandler(0)
	req := httptest.NewRequest(http.MethodGet, "/api/runtimes", nil)
	rec := httptest.NewRecorder()

	h.GetRuntimes(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var runtimes []map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&runtimes); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(runtimes) < 5 {
		t.Fatalf("expected at least 5 runtimes, got %d", len(runtimes))
	}
}

func TestGetWebSocketStatusReportsSessionCount(t *testing.T) {
	h := newTestHandler(7)
	req := httptest.NewRequest(http.MethodGet, "/api/websocket/status", nil)
	rec := httptest.NewRecorder()

	h.GetWebSocketStatus(rec, req)

	var status WebSocketStatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.ActiveSessions != 7 {
		t.Errorf("expected active sessions 7, got %d", status.ActiveSessions)
	}
}

func TestHealthHandlerReportsOkWhenBusHealthy(t *testing.T) {
	h := newTestHandler(0)
	handlerFunc := h.HealthHandler(func() bool { return true })
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handlerFunc(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when bus healthy, got %d", rec.Code)
	}
}

func TestHealthHandlerReportsDegradedWhenBusUnhealthy(t *testing.T) {
	h := newTestHandler(0)
	handlerFunc := h.HealthHandler(func() bool { return false })
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handlerFunc(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when bus unhealthy, got %d", rec.Code)
	}
}
