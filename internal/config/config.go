// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode            string        `mapstructure:"GIN_MODE"`
	ServerHost         string        `mapstructure:"SERVER_HOST"`
	ServerPort         string        `mapstructure:"SERVER_PORT"`
	ServerTimeout      time.Duration `mapstructure:"-"`
	CORSAllowedOrigins []string      `mapstructure:"-"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// OTP Reader
	AllowedEmail     string        `mapstructure:"ALLOWED_EMAIL"`
	OTPEndpointURL   string        `mapstructure:"OTP_ENDPOINT_URL"`
	OTPFetchTimeout  time.Duration `mapstructure:"-"`
	CopyConfirmation time.Duration `mapstructure:"-"`
	ViewPollInterval time.Duration `mapstructure:"-"`

	// Sessions
	SessionCookieName    string        `mapstructure:"SESSION_COOKIE_NAME"`
	SessionCookieSecure  bool          `mapstructure:"SESSION_COOKIE_SECURE"`
	SessionTTL           time.Duration `mapstructure:"-"`
	SessionSweepSchedule string        `mapstructure:"SESSION_SWEEP_SCHEDULE"`

	// Generic backend reached through the relay
	APIBaseURL   string        `mapstructure:"API_BASE_URL"`
	APIAuthToken string        `mapstructure:"API_AUTH_TOKEN"`
	APIJWTSecret string        `mapstructure:"API_JWT_SECRET"`
	APIJWTTTL    time.Duration `mapstructure:"-"`
	APITimeout   time.Duration `mapstructure:"-"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()

	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("ALLOWED_EMAIL", "gplsonindia@gmail.com")
	v.SetDefault("OTP_ENDPOINT_URL", "https://gmail-test-henna.vercel.app/read-otp")
	v.SetDefault("OTP_FETCH_TIMEOUT_SECONDS", 15)
	v.SetDefault("COPY_CONFIRMATION_MILLIS", 2000)
	v.SetDefault("VIEW_POLL_INTERVAL_MILLIS", 1000)

	v.SetDefault("SESSION_COOKIE_NAME", "otp_reader_session")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_TTL_MINUTES", 30)
	v.SetDefault("SESSION_SWEEP_SCHEDULE", "@every 5m")

	v.SetDefault("API_BASE_URL", "")
	v.SetDefault("API_AUTH_TOKEN", "")
	v.SetDefault("API_JWT_SECRET", "")
	v.SetDefault("API_JWT_TTL_MINUTES", 5)
	v.SetDefault("API_TIMEOUT_SECONDS", 15)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Duration fields are excluded from Unmarshal: viper's duration hook would
	// reject bare integers such as COPY_CONFIRMATION_MILLIS=500.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.OTPFetchTimeout = time.Duration(v.GetInt("OTP_FETCH_TIMEOUT_SECONDS")) * time.Second
	cfg.CopyConfirmation = time.Duration(v.GetInt("COPY_CONFIRMATION_MILLIS")) * time.Millisecond
	cfg.ViewPollInterval = time.Duration(v.GetInt("VIEW_POLL_INTERVAL_MILLIS")) * time.Millisecond
	cfg.SessionTTL = time.Duration(v.GetInt("SESSION_TTL_MINUTES")) * time.Minute
	cfg.APIJWTTTL = time.Duration(v.GetInt("API_JWT_TTL_MINUTES")) * time.Minute
	cfg.APITimeout = time.Duration(v.GetInt("API_TIMEOUT_SECONDS")) * time.Second

	for _, origin := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.AllowedEmail == "" {
		return fmt.Errorf("ALLOWED_EMAIL is not set")
	}
	if err := requireHTTPURL("OTP_ENDPOINT_URL", c.OTPEndpointURL); err != nil {
		return err
	}
	if c.APIBaseURL != "" {
		if err := requireHTTPURL("API_BASE_URL", c.APIBaseURL); err != nil {
			return err
		}
	}
	if c.CopyConfirmation <= 0 {
		return fmt.Errorf("COPY_CONFIRMATION_MILLIS must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}
	return nil
}

func requireHTTPURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}

// RelayEnabled reports whether a generic backend is configured.
func (c *Config) RelayEnabled() bool {
	return c.APIBaseURL != ""
}
