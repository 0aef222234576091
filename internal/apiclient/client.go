// Package apiclient is the generic request helper used to talk to the
// configured backend. Every call reports its outcome through callbacks and
// toast notifications in addition to the returned error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"otp_reader/internal/config"
	"otp_reader/internal/toast"

	"go.uber.org/zap"
)

const (
	// DefaultErrorMessage is shown when neither the server nor the caller supplied one.
	DefaultErrorMessage = "Something went wrong!"
	// InvalidCredentialsMessage replaces any failure message that looks like a credentials problem.
	InvalidCredentialsMessage = "Invalid credentials"

	maxResponseBytes = 4 << 20
)

// ErrUnsupportedMethod is returned for methods other than GET, POST, PUT and DELETE.
var ErrUnsupportedMethod = errors.New("unsupported HTTP method")

// Options is the per-call callback bag. Every field is optional.
type Options struct {
	// SetResponse receives the parsed body on success.
	SetResponse func(body any)
	// SetLoading is called with true before the call and false after it, whatever the outcome.
	SetLoading func(loading bool)
	// AdditionalFunctions run in order with the parsed body after a success.
	AdditionalFunctions []func(body any)
	// SuccessMsg, when set, is shown as a success toast.
	SuccessMsg string
	// ErrorMsg is the fallback failure toast when the server sends no message.
	ErrorMsg string
}

// RequestError describes a failed call. StatusCode is 0 when no response arrived.
type RequestError struct {
	StatusCode int
	Message    string
	Body       any
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend request failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("backend request failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Client issues requests against a base URL with injected headers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    HeaderProvider
	notifier   toast.Notifier
	logger     *zap.Logger
}

// NewClient builds the client for the configured backend. Toasts go to the log
// until a caller swaps in a session queue with WithNotifier.
func NewClient(cfg *config.Config, headers HeaderProvider, logger *zap.Logger) *Client {
	return New(cfg.APIBaseURL, &http.Client{Timeout: cfg.APITimeout}, headers, toast.NewLogNotifier(logger), logger)
}

// New creates a Client from explicit collaborators.
func New(baseURL string, httpClient *http.Client, headers HeaderProvider, notifier toast.Notifier, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if headers == nil {
		headers = NoAuth
	}
	if notifier == nil {
		notifier = toast.Discard
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		headers:    headers,
		notifier:   notifier,
		logger:     logger.Named("APIClient"),
	}
}

// WithNotifier returns a shallow copy of c that sends toasts to n.
func (c *Client) WithNotifier(n toast.Notifier) *Client {
	clone := *c
	if n == nil {
		n = toast.Discard
	}
	clone.notifier = n
	return &clone
}

func (c *Client) Get(ctx context.Context, path string, opts Options) error {
	return c.Request(ctx, http.MethodGet, path, nil, opts)
}

func (c *Client) Post(ctx context.Context, path string, payload any, opts Options) error {
	return c.Request(ctx, http.MethodPost, path, payload, opts)
}

func (c *Client) Put(ctx context.Context, path string, payload any, opts Options) error {
	return c.Request(ctx, http.MethodPut, path, payload, opts)
}

func (c *Client) Delete(ctx context.Context, path string, opts Options) error {
	return c.Request(ctx, http.MethodDelete, path, nil, opts)
}

// Request performs one call. payload is ignored for GET and DELETE.
func (c *Client) Request(ctx context.Context, method, path string, payload any, opts Options) error {
	method = strings.ToUpper(method)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	if opts.SetLoading != nil {
		opts.SetLoading(true)
		defer opts.SetLoading(false)
	}

	body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return c.handleError(method, path, err, opts.ErrorMsg)
	}

	if opts.SetResponse != nil {
		opts.SetResponse(body)
	}
	if opts.SuccessMsg != "" {
		c.notifier.NotifySuccess(opts.SuccessMsg)
	}
	for _, fn := range opts.AdditionalFunctions {
		if fn != nil {
			fn(body)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (any, error) {
	var reqBody io.Reader
	if payload != nil && method != http.MethodGet && method != http.MethodDelete {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &RequestError{Err: fmt.Errorf("encoding payload: %w", err)}
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reqBody)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	injected, err := c.headers.Headers(ctx)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	for key, values := range injected {
		req.Header[key] = values
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &RequestError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}
	body := parseBody(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, &RequestError{
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        fmt.Errorf("request failed with status code %d", resp.StatusCode),
		}
	}
	return body, nil
}

func (c *Client) url(path string) string {
	if path == "" {
		return c.baseURL
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// handleError picks the user-facing message, toasts it and logs the failure.
func (c *Client) handleError(method, path string, err error, customMsg string) error {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		reqErr = &RequestError{Err: err}
	}

	msg := serverMessage(reqErr.Body)
	if msg == "" {
		msg = customMsg
	}
	if msg == "" {
		msg = DefaultErrorMessage
	}
	reqErr.Message = msg

	if looksLikeBadCredentials(msg) {
		c.notifier.NotifyError(InvalidCredentialsMessage)
	} else {
		c.notifier.NotifyError(msg)
	}

	c.logger.Warn("Backend request failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", reqErr.StatusCode),
		zap.String("message", msg),
		zap.Error(reqErr.Err),
	)
	return reqErr
}

func looksLikeBadCredentials(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "wrong password") || strings.Contains(lower, "invalid")
}

// parseBody decodes JSON when possible; other bodies are returned as text and empty ones as nil.
func parseBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return string(raw)
	}
	return decoded
}

func serverMessage(body any) string {
	m, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := m["message"].(string)
	return msg
}
