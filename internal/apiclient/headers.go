package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"otp_reader/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"

	tokenIssuer = "otp_reader"
)

// HeaderProvider produces the headers injected into every backend request.
type HeaderProvider interface {
	Headers(ctx context.Context) (http.Header, error)
}

// HeaderFunc adapts a plain function to HeaderProvider.
type HeaderFunc func(ctx context.Context) (http.Header, error)

func (f HeaderFunc) Headers(ctx context.Context) (http.Header, error) { return f(ctx) }

// NoAuth injects nothing.
var NoAuth HeaderProvider = HeaderFunc(func(context.Context) (http.Header, error) {
	return http.Header{}, nil
})

type subjectKey struct{}

// ContextWithSubject attaches the identity the backend should see (the session email).
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFromContext returns the identity set by ContextWithSubject, or "".
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// StaticToken sends the same bearer token on every request.
type StaticToken struct {
	token string
}

func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: token}
}

func (s *StaticToken) Headers(context.Context) (http.Header, error) {
	h := http.Header{}
	h.Set(AuthorizationHeader, AuthorizationTypeBearer+" "+s.token)
	return h, nil
}

// JWTSigner mints a short-lived HS256 token per request whose subject is the
// identity found in the request context.
type JWTSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTSigner(secret string, ttl time.Duration) *JWTSigner {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &JWTSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *JWTSigner) Headers(ctx context.Context) (http.Header, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   SubjectFromContext(ctx),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("could not sign backend token: %w", err)
	}
	h := http.Header{}
	h.Set(AuthorizationHeader, AuthorizationTypeBearer+" "+signed)
	return h, nil
}

// NewHeaderProvider picks the header source from config: a signed JWT when
// API_JWT_SECRET is set, else a static API_AUTH_TOKEN, else no auth header.
func NewHeaderProvider(cfg *config.Config) HeaderProvider {
	switch {
	case cfg.APIJWTSecret != "":
		return NewJWTSigner(cfg.APIJWTSecret, cfg.APIJWTTTL)
	case cfg.APIAuthToken != "":
		return NewStaticToken(cfg.APIAuthToken)
	default:
		return NoAuth
	}
}
