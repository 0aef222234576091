package otp

import "otp_reader/internal/config"

// EmailGate decides whether an entered address may reveal the OTP.
// It is a plain string comparison and not an authentication mechanism.
type EmailGate struct {
	allowed string
}

func NewEmailGate(allowed string) EmailGate {
	return EmailGate{allowed: allowed}
}

// NewEmailGateFromConfig builds the gate for ALLOWED_EMAIL.
func NewEmailGateFromConfig(cfg *config.Config) EmailGate {
	return NewEmailGate(cfg.AllowedEmail)
}

// Allows reports an exact, case-sensitive match with no trimming.
func (g EmailGate) Allows(email string) bool {
	return g.allowed != "" && email == g.allowed
}
