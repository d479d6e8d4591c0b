package gin_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ginpkg "github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/task-registry/infrastructure/gin"
	"github.com/jonesrussell/task-registry/infrastructure/logger"
)

func init() {
	ginpkg.SetMode(ginpkg.TestMode)
}

func newTestRouter(t *testing.T) *ginpkg.Engine {
	t.Helper()

	router := ginpkg.New()
	router.Use(infragin.RecoveryMiddleware(logger.NewNop()))
	router.Use(infragin.RequestIDLoggerMiddleware(logger.NewNop()))
	router.Use(infragin.CORSMiddleware(infragin.CORSConfig{
		AllowedOrigins: []string{"http://localhost:5173"},
	}))
	router.GET("/test", func(c *ginpkg.Context) {
		if logger.FromContext(c.Request.Context()) == nil {
			t.Error("request context has no logger")
		}
		c.String(http.StatusOK, "ok")
	})
	router.GET("/panic", func(*ginpkg.Context) {
		panic("boom")
	})
	return router
}

func TestRequestIDLoggerMiddleware_GeneratesID(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	const hexLen = 32
	if got := w.Header().Get(infragin.RequestIDHeader); len(got) != hexLen {
		t.Errorf("generated request id = %q, want %d hex chars", got, hexLen)
	}
}

func TestRequestIDLoggerMiddleware_KeepsInboundID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set(infragin.RequestIDHeader, "upstream-123")
	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, req)

	if got := w.Header().Get(infragin.RequestIDHeader); got != "upstream-123" {
		t.Errorf("request id = %q, want upstream-123", got)
	}
}

func TestRequestIDLoggerMiddleware_ReplacesOversizedID(t *testing.T) {
	t.Parallel()

	oversized := strings.Repeat("x", 200)
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set(infragin.RequestIDHeader, oversized)
	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, req)

	if got := w.Header().Get(infragin.RequestIDHeader); got == oversized || got == "" {
		t.Errorf("request id = %q, want a freshly generated id", got)
	}
}

func TestCORSMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{name: "allowed origin", method: http.MethodGet, origin: "http://localhost:5173", wantStatus: http.StatusOK, wantOrigin: "http://localhost:5173"},
		{name: "unknown origin", method: http.MethodGet, origin: "http://evil.test", wantStatus: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, origin: "http://localhost:5173", wantStatus: http.StatusNoContent, wantOrigin: "http://localhost:5173"},
		{name: "no origin", method: http.MethodGet, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/test", http.NoBody)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			newTestRouter(t).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestRecoveryMiddleware_Returns500(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", http.NoBody))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestHealth_StatusFollowsChecks(t *testing.T) {
	failing := func(context.Context) error { return errors.New("down") }
	passing := func(context.Context) error { return nil }

	tests := []struct {
		name       string
		dbPing     func(context.Context) error
		redisPing  func(context.Context) error
		wantCode   int
		wantStatus infragin.HealthStatus
	}{
		{name: "all up", dbPing: passing, redisPing: passing, wantCode: http.StatusOK, wantStatus: infragin.HealthStatusHealthy},
		{name: "redis down", dbPing: passing, redisPing: failing, wantCode: http.StatusOK, wantStatus: infragin.HealthStatusDegraded},
		{name: "database down", dbPing: failing, redisPing: passing, wantCode: http.StatusServiceUnavailable, wantStatus: infragin.HealthStatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := infragin.NewServerBuilder("task-registry", 8000).
				WithDatabaseHealthCheck(tt.dbPing).
				WithRedisHealthCheck(tt.redisPing).
				Build()

			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			if w.Code != tt.wantCode {
				t.Fatalf("status code = %d, want %d", w.Code, tt.wantCode)
			}
			var resp infragin.HealthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode health response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if len(resp.Checks) != 2 {
				t.Errorf("checks = %v, want database and redis", resp.Checks)
			}
		})
	}
}
