package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"otp_reader/internal/apiclient"
	"otp_reader/internal/config"
	"otp_reader/internal/jobs"
	"otp_reader/internal/otp"
	"otp_reader/internal/reader"
	"otp_reader/internal/relay"
	"otp_reader/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		GinMode:              "test",
		ServerHost:           "127.0.0.1",
		ServerPort:           "0",
		CORSAllowedOrigins:   []string{"https://reader.example.com"},
		AllowedEmail:         "gplsonindia@gmail.com",
		OTPEndpointURL:       "http://127.0.0.1:1/read-otp",
		CopyConfirmation:     time.Second,
		ViewPollInterval:     time.Second,
		SessionCookieName:    "otp_reader_session",
		SessionTTL:           time.Minute,
		SessionSweepSchedule: "@every 1m",
	}
	logger := zap.NewNop()
	factory := session.NewStateFactory(otp.NewEmailGateFromConfig(cfg), otp.NewHTTPSource(cfg, logger), cfg, logger)
	store, cleanup := session.NewStore(cfg, factory, logger)
	t.Cleanup(cleanup)

	client := apiclient.NewClient(cfg, apiclient.NewHeaderProvider(cfg), logger)
	srv, err := NewServer(cfg, logger, store,
		reader.NewHandler(cfg, logger),
		relay.NewHandler(cfg, client, logger),
		jobs.NewSessionSweepJob(store, cfg, logger),
	)
	require.NoError(t, err)
	return srv
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"UP"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServer_RootServesShell(t *testing.T) {
	srv := newTestServer(t)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Loading...")
}

func TestServer_UnknownRouteIsJSON404(t *testing.T) {
	srv := newTestServer(t)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestServer_WrongMethodIsJSON405(t *testing.T) {
	srv := newTestServer(t)

	w := serve(srv, httptest.NewRequest(http.MethodPatch, "/api/v1/session", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "METHOD_NOT_ALLOWED")
}

func TestServer_RelayDisabledWithoutBaseURL(t *testing.T) {
	srv := newTestServer(t)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/backend/anything", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_CORSAllowsConfiguredOrigin(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/session", nil)
	req.Header.Set("Origin", "https://reader.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := serve(srv, req)

	assert.Equal(t, "https://reader.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestAllowsAllOrigins(t *testing.T) {
	assert.True(t, allowsAllOrigins([]string{"https://a.example.com", "*"}))
	assert.False(t, allowsAllOrigins([]string{"https://a.example.com"}))
	assert.False(t, allowsAllOrigins(nil))
}
