package server

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/keyx/internal/infrastructure/config"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/logging"
)

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	cfg.Logging.Development = true
	srv, err := New(cfg, logging.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Render.Gate = "sometimes"

	_, err := New(cfg, logging.NewNop(), prometheus.NewRegistry())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNewRejectsMissingAllowList(t *testing.T) {
	cfg := config.Default()
	cfg.Sanitizer.Policy = config.PolicyAllowList
	cfg.Sanitizer.AllowListFile = "does-not-exist.yaml"

	_, err := New(cfg, logging.NewNop(), prometheus.NewRegistry())
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t, config.Default())

	for _, path := range []string{"/", "/health", "/metrics", "/metrics/json"} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestResponsesCarryRequestID(t *testing.T) {
	srv := newTestServer(t, config.Default())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.True(t, strings.HasPrefix(w.Header().Get("X-Request-ID"), "req_"))
}

func TestRenderIsCompressed(t *testing.T) {
	srv := newTestServer(t, config.Default())

	content := strings.Repeat("<p>compressible paragraph</p>", 200)
	markup := `<iframe id="a" public="1" data="` + base64.StdEncoding.EncodeToString([]byte(content)) + `"></iframe>`
	body, err := json.Marshal(map[string]string{"markup": markup})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/render", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(plain), `"status":"rendered"`)
}

func TestWebSocketBypassesCompression(t *testing.T) {
	srv := newTestServer(t, config.Default())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	header := http.Header{}
	header.Set("Accept-Encoding", "gzip")
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+WebSocketPath, header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var resp map[string]string
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "pong", resp["action"])
}

func TestRateLimitApplied(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	srv := newTestServer(t, cfg)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.1.1.1:5000"
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}
