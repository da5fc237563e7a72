package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	h := Logger(log.New(&buf, "", 0))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/exams", nil))

	line := buf.String()
	if !strings.Contains(line, "GET /api/exams 418") {
		t.Fatalf("unexpected log line: %q", line)
	}
}

func TestRecoverReturns500(t *testing.T) {
	var recovered error
	h := Recover(func(err error, r *http.Request) { recovered = err })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if recovered == nil || recovered.Error() != "boom" {
		t.Fatalf("recovered = %v, want boom", recovered)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Fatalf("panic value leaked into body: %s", rec.Body.String())
	}
}

func TestLoggerKeepsHijacker(t *testing.T) {
	var buf bytes.Buffer
	var hijackable, flushable bool
	h := Logger(log.New(&buf, "", 0))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hijackable = w.(http.Hijacker)
		_, flushable = w.(http.Flusher)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws", nil))

	if !hijackable || !flushable {
		t.Fatalf("wrapped writer hijacker=%v flusher=%v, want both", hijackable, flushable)
	}
}
