// File: internal/relay/handler.go
package relay

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"otp_reader/internal/apiclient"
	"otp_reader/internal/common"
	"otp_reader/internal/config"
	"otp_reader/internal/middleware"
	"otp_reader/internal/toast"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// BackendPath is relative to the /api/v1 group.
const BackendPath = "/backend"

const maxPayloadBytes = 1 << 20

// Handler relays page calls to the configured backend through the request
// helper, routing its toasts into the caller's session.
type Handler struct {
	cfg    *config.Config
	client *apiclient.Client
	logger *zap.Logger
}

// NewHandler creates a new relay handler.
func NewHandler(cfg *config.Config, client *apiclient.Client, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

// RegisterRoutes sets up /backend/*path for GET, POST, PUT and DELETE.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, sessionMW gin.HandlerFunc) {
	backendGroup := router.Group(BackendPath)
	backendGroup.Use(sessionMW)
	{
		backendGroup.GET("/*path", h.relay)
		backendGroup.POST("/*path", h.relay)
		backendGroup.PUT("/*path", h.relay)
		backendGroup.DELETE("/*path", h.relay)
	}
}

func (h *Handler) relay(c *gin.Context) {
	if !h.cfg.RelayEnabled() {
		common.RespondWithError(c, common.ErrServiceUnavailable.WithDetails("API_BASE_URL is not configured."))
		return
	}
	st, ok := middleware.SessionFromContext(c)
	if !ok {
		h.logger.Error("Session middleware did not run", zap.String("path", c.FullPath()))
		common.RespondWithError(c, common.ErrInternalServer)
		return
	}

	var query RelayQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.Warn("Relay: Invalid query", zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	payload, err := readPayload(c)
	if err != nil {
		h.logger.Warn("Relay: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	ctx := c.Request.Context()
	if snap := st.View.Snapshot(); snap.ValidEmail {
		ctx = apiclient.ContextWithSubject(ctx, snap.Email)
	}

	var data any
	client := h.client.WithNotifier(toast.Multi(st.Toasts, toast.NewLogNotifier(h.logger)))
	err = client.Request(ctx, c.Request.Method, forwardPath(c), payload, apiclient.Options{
		SetResponse: func(body any) { data = body },
		SetLoading:  st.SetBackendBusy,
		SuccessMsg:  query.SuccessMsg,
		ErrorMsg:    query.ErrorMsg,
	})
	if err != nil {
		var reqErr *apiclient.RequestError
		if errors.As(err, &reqErr) {
			common.RespondWithError(c, common.ErrBadGateway.WithDetails(FailureDetails{
				Message:    reqErr.Message,
				StatusCode: reqErr.StatusCode,
				Body:       reqErr.Body,
			}))
			return
		}
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, query.SuccessMsg, data)
}

// forwardPath is the wildcard path plus the query minus the toast options.
func forwardPath(c *gin.Context) string {
	path := c.Param("path")
	q := c.Request.URL.Query()
	q.Del("successMsg")
	q.Del("errorMsg")
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// readPayload decodes the JSON body; an empty body yields a nil payload.
func readPayload(c *gin.Context) (any, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.New("request body must be JSON")
	}
	return payload, nil
}
