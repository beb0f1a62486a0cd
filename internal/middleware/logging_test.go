package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	handler := WithRequestLogging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/entries", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusCreated)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d; want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != "POST" {
		t.Errorf("method = %v; want POST", fields["method"])
	}
	if fields["path"] != "/api/entries" {
		t.Errorf("path = %v; want /api/entries", fields["path"])
	}
	if fields["status"] != int64(http.StatusCreated) {
		t.Errorf("status = %v; want 201", fields["status"])
	}
}
