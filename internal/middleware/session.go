package middleware

import (
	"net/http"

	"otp_reader/internal/common"
	"otp_reader/internal/config"
	"otp_reader/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Session binds the caller's browser session to the request, creating one and
// setting the cookie when the request carries no live session.
func Session(store *session.Store, cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	maxAge := int(cfg.SessionTTL.Seconds())
	return func(c *gin.Context) {
		id, _ := c.Cookie(cfg.SessionCookieName)
		st, created := store.GetOrCreate(id)
		if created {
			logger.Debug("Started browser session", zap.String("session_id", st.ID), zap.Bool("had_cookie", id != ""))
		}
		// Refresh the cookie on every request so it slides with the server-side TTL.
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.SessionCookieName, st.ID, maxAge, "/", "", cfg.SessionCookieSecure, true)
		c.Set(common.SessionKey, st)
		c.Next()
	}
}

// SessionFromContext returns the session bound by the Session middleware.
func SessionFromContext(c *gin.Context) (*session.State, bool) {
	v, exists := c.Get(common.SessionKey)
	if !exists {
		return nil, false
	}
	st, ok := v.(*session.State)
	return st, ok
}
