package common

const (
	// SessionKey is the Gin context key holding the caller's *session.State
	SessionKey = "session"
	// LoggerKey is the Gin context key holding a request-scoped *zap.Logger
	LoggerKey = "logger"
)
