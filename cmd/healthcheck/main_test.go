package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	httphandler "github.com/ericfisherdev/envpanel/internal/adapter/driving/http"
)

// serveHealth starts a server answering the health route with status and
// body, and points ENVPANEL_LISTEN_ADDR at it.
func serveHealth(t *testing.T, status int, body httphandler.HealthResponse) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)

	t.Setenv("ENVPANEL_LISTEN_ADDR", strings.TrimPrefix(server.URL, "http://"))
}

func TestCheck_Healthy(t *testing.T) {
	serveHealth(t, http.StatusOK, httphandler.HealthResponse{Status: "ok", Checks: map[string]string{"store": "ok"}})

	assert.Equal(t, 0, check())
}

func TestCheck_Degraded(t *testing.T) {
	serveHealth(t, http.StatusServiceUnavailable, httphandler.HealthResponse{
		Status: "degraded",
		Checks: map[string]string{"store": "sql: database is closed"},
	})

	assert.Equal(t, 1, check())
}

func TestCheck_StoreNotOKDespite200(t *testing.T) {
	serveHealth(t, http.StatusOK, httphandler.HealthResponse{Status: "ok", Checks: map[string]string{"store": "locked"}})

	assert.Equal(t, 1, check())
}

func TestCheck_StoreCheckMissing(t *testing.T) {
	serveHealth(t, http.StatusOK, httphandler.HealthResponse{Status: "ok"})

	assert.Equal(t, 1, check())
}

func TestCheck_NotAHealthDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>proxy error</html>"))
	}))
	t.Cleanup(server.Close)
	t.Setenv("ENVPANEL_LISTEN_ADDR", strings.TrimPrefix(server.URL, "http://"))

	assert.Equal(t, 1, check())
}

func TestCheck_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(server.URL, "http://")
	server.Close()
	t.Setenv("ENVPANEL_LISTEN_ADDR", addr)

	assert.Equal(t, 1, check())
}

func TestNormalizeAddr(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "127.0.0.1:8080"},
		{"not-an-addr", "127.0.0.1:8080"},
		{":9090", "127.0.0.1:9090"},
		{"0.0.0.0:9090", "127.0.0.1:9090"},
		{"[::]:9090", "127.0.0.1:9090"},
		{"10.0.0.5:8080", "10.0.0.5:8080"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeAddr(tt.raw), tt.raw)
	}
}
