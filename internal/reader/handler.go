// File: internal/reader/handler.go
package reader

import (
	"errors"
	"net/http"
	"time"

	"otp_reader/internal/common"
	"otp_reader/internal/config"
	"otp_reader/internal/middleware"
	"otp_reader/internal/otp"
	"otp_reader/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	// ViewPath serves the lazily loaded OTP reader fragment.
	ViewPath = "/view"
	// SessionAPIPath is relative to the /api/v1 group.
	SessionAPIPath = "/session"

	appTitle = "OTP Reader"

	// copyReloadSlack lets the copy timer fire before the browser re-renders.
	copyReloadSlack = 50 * time.Millisecond
)

// Handler serves the OTP reader page and its session API.
type Handler struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHandler creates a new reader handler.
func NewHandler(cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:    cfg,
		logger: logger,
	}
}

// RegisterPageRoutes mounts the page shell at "/" and the view fragment.
func (h *Handler) RegisterPageRoutes(router gin.IRouter, sessionMW gin.HandlerFunc) {
	router.GET("/", h.shell)
	router.GET(ViewPath, sessionMW, h.view)
}

// RegisterRoutes sets up the session API under the given group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, sessionMW gin.HandlerFunc) {
	sessionGroup := router.Group(SessionAPIPath)
	sessionGroup.Use(sessionMW)
	{
		sessionGroup.GET("", h.getSession)
		sessionGroup.PUT("/email", h.setEmail)
		sessionGroup.POST("/confirm", h.confirm)
		sessionGroup.POST("/refresh", h.refresh)
		sessionGroup.POST("/copy", h.copyOTP)
	}
}

// shell renders only the loading placeholder; the reader itself is fetched
// from ViewPath once the page script runs.
func (h *Handler) shell(c *gin.Context) {
	c.HTML(http.StatusOK, "shell.tmpl", gin.H{
		"Title":     appTitle,
		"ViewPath":  ViewPath,
		"APIPrefix": "/api/v1" + SessionAPIPath,
	})
}

func (h *Handler) view(c *gin.Context) {
	st, ok := h.session(c)
	if !ok {
		return
	}
	data := viewData{
		Snapshot:    st.View.Snapshot(),
		BackendBusy: st.BackendBusy(),
		Toasts:      st.Toasts.Drain(),
	}
	data.ReloadAfterMillis = h.reloadAfter(data).Milliseconds()

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, "view.tmpl", data)
}

// reloadAfter tells the browser when the fragment will look different
// without user input. Zero means it will not.
func (h *Handler) reloadAfter(data viewData) time.Duration {
	switch {
	case data.Snapshot.Loading, data.BackendBusy:
		return h.cfg.ViewPollInterval
	case data.Snapshot.Copied:
		return h.cfg.CopyConfirmation + copyReloadSlack
	default:
		return 0
	}
}

func (h *Handler) getSession(c *gin.Context) {
	st, ok := h.session(c)
	if !ok {
		return
	}
	common.RespondOK(c, "Session retrieved successfully.", toSessionResponse(st))
}

func (h *Handler) setEmail(c *gin.Context) {
	st, ok := h.session(c)
	if !ok {
		return
	}
	var req SetEmailRequest
	if !h.bindJSON(c, &req, "Set email") {
		return
	}
	st.View.SetEmail(*req.Email)
	common.RespondOK(c, "Email updated.", toSessionResponse(st))
}

func (h *Handler) confirm(c *gin.Context) {
	st, ok := h.session(c)
	if !ok {
		return
	}
	if !st.View.Confirm(c.Request.Context()) {
		// An unrecognised email gets no feedback beyond the disabled button.
		common.RespondOK(c, "", ConfirmResponse{Confirmed: false, Session: toSessionResponse(st)})
		return
	}
	h.logger.Info("OTP section revealed", zap.String("session_id", st.ID))
	common.RespondAccepted(c, "Fetching OTP.", ConfirmResponse{Confirmed: true, Session: toSessionResponse(st)})
}

func (h *Handler) refresh(c *gin.Context) {
	st, ok := h.session(c)
	if !ok {
		return
	}
	if !st.View.Snapshot().ShowOTPSection {
		common.RespondWithError(c, common.ErrConflict.WithDetails("The OTP section has not been opened."))
		return
	}
	st.View.Refresh(c.Request.Context())
	common.RespondAccepted(c, "Fetching OTP.", toSessionResponse(st))
}

// copyOTP marks the displayed code as copied once the browser reports that
// its clipboard write succeeded. A rejected or missing write is only logged.
func (h *Handler) copyOTP(c *gin.Context) {
	st, ok := h.session(c)
	if !ok {
		return
	}
	var req CopyRequest
	if !h.bindJSON(c, &req, "Copy") {
		return
	}
	write := otp.BrowserWrite{Text: req.Text}
	if !*req.Written {
		msg := req.Error
		if msg == "" {
			msg = "clipboard write rejected"
		}
		write.Err = errors.New(msg)
	}
	ctx := otp.ContextWithBrowserWrite(c.Request.Context(), write)
	common.RespondOK(c, "", CopyResponse{Copied: st.View.Copy(ctx)})
}

// bindJSON binds and validates the body, answering 422 or 400 on failure.
func (h *Handler) bindJSON(c *gin.Context, req any, action string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn(action+": Invalid request body", zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return false
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return false
	}
	return true
}

func (h *Handler) session(c *gin.Context) (*session.State, bool) {
	st, ok := middleware.SessionFromContext(c)
	if !ok {
		h.logger.Error("Session middleware did not run", zap.String("path", c.FullPath()))
		common.RespondWithError(c, common.ErrInternalServer)
		return nil, false
	}
	return st, true
}
