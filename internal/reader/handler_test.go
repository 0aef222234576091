package reader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"otp_reader/internal/config"
	"otp_reader/internal/middleware"
	"otp_reader/internal/otp"
	"otp_reader/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const allowedEmail = "gplsonindia@gmail.com"

// MockSource is a mock type for otp.Source
type MockSource struct {
	mock.Mock
}

func (m *MockSource) FetchOTPs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	var otps []string
	if args.Get(0) != nil {
		otps = args.Get(0).([]string)
	}
	return otps, args.Error(1)
}

type testEnv struct {
	router *gin.Engine
	store  *session.Store
	cookie *http.Cookie
}

func newTestEnv(t *testing.T, source otp.Source) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		AllowedEmail:      allowedEmail,
		CopyConfirmation:  time.Hour,
		OTPFetchTimeout:   5 * time.Second,
		ViewPollInterval:  time.Second,
		SessionCookieName: "otp_reader_session",
		SessionTTL:        time.Minute,
	}
	logger := zap.NewNop()
	factory := session.NewStateFactory(otp.NewEmailGateFromConfig(cfg), source, cfg, logger)
	store, cleanup := session.NewStore(cfg, factory, logger)
	t.Cleanup(cleanup)

	tmpl, err := Templates()
	require.NoError(t, err)

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	sessionMW := middleware.Session(store, cfg, logger)
	h := NewHandler(cfg, logger)
	h.RegisterPageRoutes(router, sessionMW)
	h.RegisterRoutes(router.Group("/api/v1"), sessionMW)

	return &testEnv{router: router, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == "otp_reader_session" {
			e.cookie = c
		}
	}
	return w
}

func (e *testEnv) state(t *testing.T) *session.State {
	t.Helper()
	require.NotNil(t, e.cookie, "no session cookie issued")
	st, ok := e.store.Get(e.cookie.Value)
	require.True(t, ok)
	return st
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestShell_RendersLoadingPlaceholder(t *testing.T) {
	env := newTestEnv(t, new(MockSource))

	w := env.do(t, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `class="spinner"`)
	assert.Contains(t, body, "Loading...")
	assert.NotContains(t, body, "Show OTP")
	assert.Nil(t, env.cookie, "the shell does not need a session")
}

func TestView_InitialRenderHasDisabledButtonAndNoOTPSection(t *testing.T) {
	env := newTestEnv(t, new(MockSource))

	w := env.do(t, http.MethodGet, ViewPath, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `id="show-otp" class="primary" disabled`)
	assert.NotContains(t, body, "Latest OTP")
	assert.NotContains(t, body, "data-reload-after")
	assert.NotNil(t, env.cookie)
}

func TestSession_InvalidEmailNeverFetches(t *testing.T) {
	source := new(MockSource)
	env := newTestEnv(t, source)

	w := env.do(t, http.MethodPut, "/api/v1/session/email", gin.H{"email": "someone@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeData[SessionResponse](t, w).ValidEmail)

	w = env.do(t, http.MethodPost, "/api/v1/session/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeData[ConfirmResponse](t, w)
	assert.False(t, resp.Confirmed)
	assert.False(t, resp.Session.ShowOTPSection)

	env.state(t).View.Wait()
	source.AssertNotCalled(t, "FetchOTPs", mock.Anything)
}

func TestSession_ValidEmailFetchesOnceAndShowsLastOTP(t *testing.T) {
	source := new(MockSource)
	source.On("FetchOTPs", mock.Anything).Return([]string{"111111", "222222"}, nil).Once()
	env := newTestEnv(t, source)

	w := env.do(t, http.MethodPut, "/api/v1/session/email", gin.H{"email": allowedEmail})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeData[SessionResponse](t, w).ValidEmail)

	w = env.do(t, http.MethodPost, "/api/v1/session/confirm", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, decodeData[ConfirmResponse](t, w).Confirmed)

	env.state(t).View.Wait()

	w = env.do(t, http.MethodGet, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeData[SessionResponse](t, w)
	assert.Equal(t, otp.StateSuccess, resp.State)
	assert.Equal(t, "222222", resp.OTP)
	source.AssertNumberOfCalls(t, "FetchOTPs", 1)

	body := env.do(t, http.MethodGet, ViewPath, nil).Body.String()
	assert.Contains(t, body, `value="222222"`)
	assert.Contains(t, body, `data-action="copy"`)
}

func TestSession_SetEmailRequiresField(t *testing.T) {
	env := newTestEnv(t, new(MockSource))

	w := env.do(t, http.MethodPut, "/api/v1/session/email", gin.H{})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestSession_EmptyEmailIsAccepted(t *testing.T) {
	env := newTestEnv(t, new(MockSource))

	w := env.do(t, http.MethodPut, "/api/v1/session/email", gin.H{"email": ""})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeData[SessionResponse](t, w).ValidEmail)
}

func TestSession_RefreshBeforeConfirmConflicts(t *testing.T) {
	source := new(MockSource)
	env := newTestEnv(t, source)

	w := env.do(t, http.MethodPost, "/api/v1/session/refresh", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	source.AssertNotCalled(t, "FetchOTPs", mock.Anything)
}

func TestSession_LoadingViewPolls(t *testing.T) {
	release := make(chan time.Time)
	source := new(MockSource)
	source.On("FetchOTPs", mock.Anything).WaitUntil(release).Return([]string{"333333"}, nil)
	env := newTestEnv(t, source)

	env.do(t, http.MethodPut, "/api/v1/session/email", gin.H{"email": allowedEmail})
	env.do(t, http.MethodPost, "/api/v1/session/confirm", nil)

	body := env.do(t, http.MethodGet, ViewPath, nil).Body.String()
	assert.Contains(t, body, `data-state="loading"`)
	assert.Contains(t, body, `data-reload-after="1000"`)
	assert.Contains(t, body, `class="skeleton"`)

	close(release)
	env.state(t).View.Wait()

	body = env.do(t, http.MethodGet, ViewPath, nil).Body.String()
	assert.Contains(t, body, `data-state="success"`)
	assert.NotContains(t, body, "data-reload-after")
}

func TestSession_FailureOffersTryAgain(t *testing.T) {
	source := new(MockSource)
	source.On("FetchOTPs", mock.Anything).Return(nil, errors.New("Network Error")).Once()
	source.On("FetchOTPs", mock.Anything).Return([]string{"444444"}, nil).Once()
	env := newTestEnv(t, source)

	env.do(t, http.MethodPut, "/api/v1/session/email", gin.H{"email": allowedEmail})
	env.do(t, http.MethodPost, "/api/v1/session/confirm", nil)
	env.state(t).View.Wait()

	body := env.do(t, http.MethodGet, ViewPath, nil).Body.String()
	assert.Contains(t, body, "Network Error")
	assert.Contains(t, body, "Try Again")

	w := env.do(t, http.MethodPost, "/api/v1/session/refresh", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	env.state(t).View.Wait()

	resp := decodeData[SessionResponse](t, env.do(t, http.MethodGet, "/api/v1/session", nil))
	assert.Equal(t, "444444", resp.OTP)
	assert.Empty(t, resp.Error)
}

func TestSession_EmptyInboxShowsNoOTPsFound(t *testing.T) {
	source := new(MockSource)
	source.On("FetchOTPs", mock.Anything).Return([]string{}, nil)
	env := newTestEnv(t, source)

	env.do(t, http.MethodPut, "/api/v1/session/email", gin.H{"email": allowedEmail})
	env.do(t, http.MethodPost, "/api/v1/session/confirm", nil)
	env.state(t).View.Wait()

	body := env.do(t, http.MethodGet, ViewPath, nil).Body.String()
	assert.Contains(t, body, otp.NoOTPsMessage)
	assert.NotContains(t, body, `data-action="copy"`)
}

func confirmedEnv(t *testing.T, otps ...string) *testEnv {
	t.Helper()
	source := new(MockSource)
	source.On("FetchOTPs", mock.Anything).Return(otps, nil)
	env := newTestEnv(t, source)

	env.do(t, http.MethodPut, "/api/v1/session/email", gin.H{"email": allowedEmail})
	env.do(t, http.MethodPost, "/api/v1/session/confirm", nil)
	env.state(t).View.Wait()
	return env
}

func TestSession_CopyConfirmedByBrowserWrite(t *testing.T) {
	env := confirmedEnv(t, "555555")

	w := env.do(t, http.MethodPost, "/api/v1/session/copy", gin.H{"text": "555555", "written": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeData[CopyResponse](t, w).Copied)
	assert.True(t, env.state(t).View.Snapshot().Copied)

	body := env.do(t, http.MethodGet, ViewPath, nil).Body.String()
	assert.Contains(t, body, "Copied to clipboard!")
	assert.Contains(t, body, "data-reload-after")
}

func TestSession_RejectedBrowserWriteChangesNothing(t *testing.T) {
	env := confirmedEnv(t, "555555")
	before := env.state(t).View.Snapshot()

	w := env.do(t, http.MethodPost, "/api/v1/session/copy", gin.H{
		"text":    "555555",
		"written": false,
		"error":   "NotAllowedError: Write permission denied.",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeData[CopyResponse](t, w).Copied)
	assert.Equal(t, before, env.state(t).View.Snapshot())

	body := env.do(t, http.MethodGet, ViewPath, nil).Body.String()
	assert.NotContains(t, body, "Copied to clipboard!")
	assert.NotContains(t, body, "data-reload-after")
}

func TestSession_CopyRequiresBrowserReport(t *testing.T) {
	env := confirmedEnv(t, "555555")

	w := env.do(t, http.MethodPost, "/api/v1/session/copy", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/session/copy", gin.H{"text": "555555"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	assert.False(t, env.state(t).View.Snapshot().Copied)
}

func TestSession_CopyOfStaleCodeIsIgnored(t *testing.T) {
	env := confirmedEnv(t, "555555")

	w := env.do(t, http.MethodPost, "/api/v1/session/copy", gin.H{"text": "111111", "written": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeData[CopyResponse](t, w).Copied)
	assert.False(t, env.state(t).View.Snapshot().Copied)
}

func TestSession_CopyWithoutOTPIsNoop(t *testing.T) {
	env := newTestEnv(t, new(MockSource))

	w := env.do(t, http.MethodPost, "/api/v1/session/copy", gin.H{"text": "", "written": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeData[CopyResponse](t, w).Copied)
}

func TestView_DrainsToasts(t *testing.T) {
	env := newTestEnv(t, new(MockSource))
	env.do(t, http.MethodGet, ViewPath, nil)
	env.state(t).Toasts.NotifyError("Invalid credentials")

	body := env.do(t, http.MethodGet, ViewPath, nil).Body.String()
	assert.Contains(t, body, `toast-error`)
	assert.Contains(t, body, "Invalid credentials")

	body = env.do(t, http.MethodGet, ViewPath, nil).Body.String()
	assert.NotContains(t, body, "Invalid credentials")
}
