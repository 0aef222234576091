package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"otp_reader/internal/config"

	"go.uber.org/zap"
)

const maxSourceBodyBytes = 1 << 20

// Source returns the OTPs captured from the inbox, oldest first.
type Source interface {
	FetchOTPs(ctx context.Context) ([]string, error)
}

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Request failed with status code %d", e.StatusCode)
}

// HTTPSource reads OTPs from the remote inbox endpoint with a plain GET.
// The endpoint needs no auth headers.
type HTTPSource struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

var _ Source = (*HTTPSource)(nil)

// NewHTTPSource creates a source for OTP_ENDPOINT_URL.
func NewHTTPSource(cfg *config.Config, logger *zap.Logger) *HTTPSource {
	return NewHTTPSourceWithClient(cfg.OTPEndpointURL, &http.Client{Timeout: cfg.OTPFetchTimeout}, logger)
}

func NewHTTPSourceWithClient(endpoint string, client *http.Client, logger *zap.Logger) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{endpoint: endpoint, client: client, logger: logger.Named("OTPSource")}
}

type readOTPResponse struct {
	OTPs []string `json:"otps"`
}

// FetchOTPs performs one GET. A 2xx body of any shape other than
// {"otps": [...strings]} yields an empty list rather than an error.
func (s *HTTPSource) FetchOTPs(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("OTP endpoint unreachable", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("OTP endpoint returned an error status", zap.Int("status_code", resp.StatusCode))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading OTP response: %w", err)
	}

	var body readOTPResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		s.logger.Debug("Unexpected OTP response shape, treating as empty", zap.Error(err))
		return nil, nil
	}
	s.logger.Debug("Fetched OTPs", zap.Int("count", len(body.OTPs)))
	return body.OTPs, nil
}
