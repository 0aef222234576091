package otp

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// NoOTPsMessage is shown when the inbox returned no codes.
	NoOTPsMessage = "No OTPs found"
	// FetchFailedMessage is shown when a failure carries no text of its own.
	FetchFailedMessage = "Failed to fetch OTP"

	DefaultCopyConfirmation = 2 * time.Second
	DefaultFetchTimeout     = 15 * time.Second
)

// State is the display mode of the OTP section.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateEmpty   State = "empty"
	StateFailure State = "failure"
)

// ViewConfig tunes timers of a View.
type ViewConfig struct {
	CopyConfirmation time.Duration
	FetchTimeout     time.Duration
}

// Snapshot is a consistent copy of a View's state.
type Snapshot struct {
	Email          string `json:"email"`
	ValidEmail     bool   `json:"valid_email"`
	ShowOTPSection bool   `json:"show_otp_section"`
	State          State  `json:"state"`
	Loading        bool   `json:"loading"`
	OTP            string `json:"otp,omitempty"`
	Error          string `json:"error,omitempty"`
	Copied         bool   `json:"copied"`
}

// View owns the form and fetch state of one OTP reader page.
//
// Fetches are not sequenced: when several overlap, whichever finishes last
// decides the displayed result, and the first to finish clears the loading flag.
type View struct {
	gate      EmailGate
	source    Source
	clipboard Clipboard
	cfg       ViewConfig
	logger    *zap.Logger

	mu             sync.Mutex
	email          string
	validEmail     bool
	showOTPSection bool
	loading        bool
	state          State // last settled fetch outcome
	otp            string
	errMsg         string
	copied         bool
	copyTimer      *time.Timer
	copyGen        uint64
	closed         bool

	inflight sync.WaitGroup
}

// NewView creates a view in the Idle state.
func NewView(gate EmailGate, source Source, clipboard Clipboard, cfg ViewConfig, logger *zap.Logger) *View {
	if cfg.CopyConfirmation <= 0 {
		cfg.CopyConfirmation = DefaultCopyConfirmation
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &View{
		gate:      gate,
		source:    source,
		clipboard: clipboard,
		cfg:       cfg,
		logger:    logger,
		state:     StateIdle,
	}
}

// SetEmail records the entered text and returns whether it passes the gate.
func (v *View) SetEmail(email string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.email = email
	v.validEmail = v.gate.Allows(email)
	return v.validEmail
}

// Confirm reveals the OTP section and starts a fetch. It does nothing and
// returns false unless the current email passes the gate.
func (v *View) Confirm(ctx context.Context) bool {
	v.mu.Lock()
	if !v.validEmail {
		v.mu.Unlock()
		return false
	}
	v.showOTPSection = true
	v.mu.Unlock()

	v.startFetch(ctx)
	return true
}

// Refresh re-runs the fetch unconditionally.
func (v *View) Refresh(ctx context.Context) {
	v.mu.Lock()
	v.showOTPSection = true
	v.mu.Unlock()

	v.startFetch(ctx)
}

// startFetch marks the view loading and runs the fetch in the background.
// The fetch outlives the caller's request but not FetchTimeout.
func (v *View) startFetch(ctx context.Context) {
	v.mu.Lock()
	v.loading = true
	v.errMsg = ""
	v.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.cfg.FetchTimeout)
	v.inflight.Add(1)
	go func() {
		defer v.inflight.Done()
		defer cancel()
		v.fetch(fetchCtx)
	}()
}

func (v *View) fetch(ctx context.Context) {
	otps, err := v.source.FetchOTPs(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case err != nil:
		msg := err.Error()
		if msg == "" {
			msg = FetchFailedMessage
		}
		v.errMsg = msg
		v.state = StateFailure
		v.logger.Warn("OTP fetch failed", zap.Error(err))
	case len(otps) > 0:
		v.otp = otps[len(otps)-1]
		v.errMsg = ""
		v.state = StateSuccess
	default:
		v.errMsg = NoOTPsMessage
		v.state = StateEmpty
	}
	v.loading = false
}

// Copy writes the displayed OTP to the clipboard and raises the copied flag
// for CopyConfirmation. A copy inside the window restarts it. It returns false
// when there is nothing to copy or the clipboard write failed; a failed write
// is only logged.
func (v *View) Copy(ctx context.Context) bool {
	v.mu.Lock()
	text := v.otp
	copyable := text != "" && !v.loading && v.errMsg == ""
	v.mu.Unlock()
	if !copyable {
		return false
	}

	if err := v.clipboard.WriteText(ctx, text); err != nil {
		v.logger.Error("Failed to copy text", zap.Error(err))
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return false
	}
	v.copied = true
	v.copyGen++
	gen := v.copyGen
	if v.copyTimer != nil {
		v.copyTimer.Stop()
	}
	v.copyTimer = time.AfterFunc(v.cfg.CopyConfirmation, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		// A stopped timer may still fire if it was already running.
		if v.copyGen == gen {
			v.copied = false
		}
	})
	return true
}

// Snapshot returns the current state. The display mode gives loading
// precedence over an error, and an error precedence over a code.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := Snapshot{
		Email:          v.email,
		ValidEmail:     v.validEmail,
		ShowOTPSection: v.showOTPSection,
		Loading:        v.loading,
		Copied:         v.copied,
	}
	switch {
	case !v.showOTPSection:
		s.State = StateIdle
	case v.loading:
		s.State = StateLoading
	case v.errMsg != "":
		s.State = v.state
		s.Error = v.errMsg
	default:
		s.State = v.state
		s.OTP = v.otp
	}
	return s
}

// Wait blocks until every running fetch has settled.
func (v *View) Wait() {
	v.inflight.Wait()
}

// Close stops the copy-confirmation timer. Running fetches still settle but
// nothing observes them afterwards.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.copyGen++
	if v.copyTimer != nil {
		v.copyTimer.Stop()
		v.copyTimer = nil
	}
	v.copied = false
}
