package session

import (
	"sync"
	"sync/atomic"
	"time"

	"otp_reader/internal/config"
	"otp_reader/internal/otp"
	"otp_reader/internal/toast"

	"go.uber.org/zap"
)

// State is everything the server keeps for one browser session.
type State struct {
	ID        string
	CreatedAt time.Time

	View   *otp.View
	Toasts *toast.Queue

	backendBusy atomic.Int32
	closeOnce   sync.Once
}

// SetBackendBusy tracks relay calls in flight; it is the loading callback of the request helper.
func (s *State) SetBackendBusy(busy bool) {
	if busy {
		s.backendBusy.Add(1)
	} else {
		s.backendBusy.Add(-1)
	}
}

// BackendBusy reports whether a relay call is running.
func (s *State) BackendBusy() bool {
	return s.backendBusy.Load() > 0
}

// Close releases timers held by the session.
func (s *State) Close() {
	s.closeOnce.Do(s.View.Close)
}

// Factory builds the state for a new session.
type Factory func(id string) *State

// NewStateFactory wires the OTP view of every new session to the shared source and gate.
func NewStateFactory(gate otp.EmailGate, source otp.Source, cfg *config.Config, logger *zap.Logger) Factory {
	viewCfg := otp.ViewConfig{
		CopyConfirmation: cfg.CopyConfirmation,
		FetchTimeout:     cfg.OTPFetchTimeout,
	}
	return func(id string) *State {
		return &State{
			ID:        id,
			CreatedAt: time.Now(),
			View:      otp.NewView(gate, source, otp.NewBrowserClipboard(), viewCfg, logger.Named("OTPView").With(zap.String("session_id", id))),
			Toasts:    toast.NewQueue(toast.DefaultQueueSize),
		}
	}
}
