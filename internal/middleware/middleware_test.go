package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/floor-plans", nil))

	if captured == "" {
		t.Fatal("expected a generated request ID in context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != captured {
		t.Errorf("response header = %q, want %q", got, captured)
	}
}

func TestRequestIDPreservesIncoming(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/floor-plans", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if captured != "client-supplied-id" {
		t.Fatalf("request ID = %q, want client-supplied-id", captured)
	}
}

func TestLoggingCapturesStatusAndErrorCode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := SetErrorCode(r.Context(), "not_found")
		UpdateResponseContext(w, ctx)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false}`))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/floor-plans/fp-404", nil))

	out := buf.String()
	for _, want := range []string{`"status":404`, `"error_code":"not_found"`, `"method":"GET"`, `"level":"WARN"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}

func TestLoggingLevelsByStatus(t *testing.T) {
	cases := []struct {
		status int
		level  string
	}{
		{http.StatusOK, `"level":"INFO"`},
		{http.StatusBadRequest, `"level":"WARN"`},
		{http.StatusInternalServerError, `"level":"ERROR"`},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if !strings.Contains(buf.String(), tc.level) {
			t.Errorf("status %d: log missing %s: %s", tc.status, tc.level, buf.String())
		}
	}
}

func TestUpdateResponseContextUnwrapsNestedWriters(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())
	wrapped := newMetricsResponseWriter(rw)

	ctx := SetErrorCode(context.Background(), "forbidden")
	UpdateResponseContext(wrapped, ctx)

	if rw.ctx == nil || GetErrorCode(rw.ctx) != "forbidden" {
		t.Fatal("expected error code to reach the logging writer through the metrics wrapper")
	}
}

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/floor-plans", "/floor-plans"},
		{"/floor-plans/public", "/floor-plans/public"},
		{"/floor-plans/master", "/floor-plans/master"},
		{"/floor-plans/abc-123", "/floor-plans/{id}"},
		{"/floor-plans/abc-123/booths", "/floor-plans/{id}/booths"},
		{"/floor-plans/abc-123/booths/s9", "/floor-plans/{id}/booths/{shapeId}"},
		{"/floor-plans/abc-123/booths/s9/status", "/floor-plans/{id}/booths/{shapeId}/status"},
		{"/floor-plans/abc-123/booths/s9/neighbors", "/floor-plans/{id}/booths/{shapeId}/neighbors"},
		{"/floor-plans/abc-123/export", "/floor-plans/{id}/export"},
		{"/floor-plans/abc-123/analytics", "/floor-plans/{id}/analytics"},
		{"/floor-plans/abc-123/analytics/booths", "/floor-plans/{id}/analytics/booths"},
		{"/floor-plans/abc-123/analytics/heatmap", "/floor-plans/{id}/analytics/heatmap"},
		{"/floor-plans/abc-123/share", "/floor-plans/{id}/share"},
		{"/floor-plans/abc-123/live", "/floor-plans/{id}/live"},
		{"/floor-plans/abc-123/background/sign", "/floor-plans/{id}/background/sign"},
		{"/floor-plans/abc-123/background/finalize", "/floor-plans/{id}/background/finalize"},
		{"/shared/tok123", "/shared/{token}"},
		{"/shared/tok123/export", "/shared/{token}/export"},
		{"/exhibitors/find-booth/B12", "/exhibitors/find-booth/{boothNumber}"},
		{"/health", "/health"},
		{"/unknown/route", "/unknown/route"},
	}
	for _, tc := range cases {
		if got := normalizePath(tc.in); got != tc.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCORSAllowsListedOrigin(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowedOrigins: []string{"https://app.example.com"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/floor-plans", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allow-origin = %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowedOrigins: []string{"https://app.example.com"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/floor-plans", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowedOrigins: []string{"https://app.example.com"},
		AllowedMethods: []string{"GET", "POST", "PATCH"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         600,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/floor-plans", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Errorf("max-age = %q, want 600", got)
	}
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	config := RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}
	handler := RateLimiter(store, config, IPKeyFunc())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/floor-plans", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d blocked unexpectedly", i+1)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/floor-plans", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	config := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}
	handler := RateLimiter(store, config, IPKeyFunc())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("first request from %s blocked", addr)
		}
	}
}

func TestIPKeyFunc(t *testing.T) {
	keyFunc := IPKeyFunc()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:4321"
	if got := keyFunc(req); got != "192.168.1.5" {
		t.Errorf("key = %q, want 192.168.1.5", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := keyFunc(req); got != "203.0.113.7" {
		t.Errorf("key = %q, want first forwarded IP", got)
	}
}

func TestUserKeyFuncPrefersUserID(t *testing.T) {
	keyFunc := UserKeyFunc()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:4321"
	req = req.WithContext(SetUserID(req.Context(), "user-9"))
	if got := keyFunc(req); got != "user:user-9" {
		t.Errorf("key = %q, want user:user-9", got)
	}
}
