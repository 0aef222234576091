package reader

import (
	"otp_reader/internal/otp"
	"otp_reader/internal/session"
	"otp_reader/internal/toast"
)

// SetEmailRequest carries the current text of the email field.
// A pointer so that an empty field is still a valid, present value.
type SetEmailRequest struct {
	Email *string `json:"email" binding:"required"`
}

// SessionResponse is the JSON view of a session's OTP reader.
type SessionResponse struct {
	otp.Snapshot
	BackendBusy bool `json:"backend_busy"`
}

// ConfirmResponse reports whether "Show OTP" took effect.
type ConfirmResponse struct {
	Confirmed bool            `json:"confirmed"`
	Session   SessionResponse `json:"session"`
}

// CopyRequest is the browser's report of its clipboard write, sent after
// navigator.clipboard.writeText settles.
type CopyRequest struct {
	Text    string `json:"text" binding:"max=256"`
	Written *bool  `json:"written" binding:"required"`
	Error   string `json:"error" binding:"max=500"`
}

// CopyResponse reports whether the confirmation is now showing.
type CopyResponse struct {
	Copied bool `json:"copied"`
}

// viewData feeds view.tmpl.
type viewData struct {
	Snapshot          otp.Snapshot
	BackendBusy       bool
	Toasts            []toast.Toast
	ReloadAfterMillis int64
}

func toSessionResponse(st *session.State) SessionResponse {
	return SessionResponse{
		Snapshot:    st.View.Snapshot(),
		BackendBusy: st.BackendBusy(),
	}
}
