package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	MongoURI      string `env:"MONGODB_URI,required" validate:"required"`
	MongoDatabase string `env:"MONGODB_DATABASE,required" validate:"required"`

	EmailProvider string `env:"EMAIL_PROVIDER" validate:"omitempty,oneof=brevo resend"`
	EmailAPIKey   string `env:"EMAIL_API_KEY"`
	EmailFrom     string `env:"EMAIL_FROM" validate:"omitempty,email"`
	EmailFromName string `env:"EMAIL_FROM_NAME" envDefault:"Storedesk"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	BaseURL            string `env:"BASE_URL" validate:"omitempty,url"`

	AuthTokenSecret string `env:"AUTH_TOKEN_SECRET,required" validate:"required,min=32"`

	UploadBucket        string `env:"UPLOAD_BUCKET"`
	UploadRegion        string `env:"UPLOAD_REGION" envDefault:"us-east-1"`
	UploadPublicBaseURL string `env:"UPLOAD_PUBLIC_BASE_URL" validate:"omitempty,url"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	SessionStoreProvider  string `env:"SESSION_STORE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis,required_if=SessionStoreProvider redis"`

	TransitionPolicyFile string `env:"TRANSITION_POLICY_FILE"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	if c.EmailProvider != "" {
		if strings.TrimSpace(c.EmailAPIKey) == "" || strings.TrimSpace(c.EmailFrom) == "" {
			return fmt.Errorf("EMAIL_API_KEY and EMAIL_FROM are required when EMAIL_PROVIDER is set")
		}
	}

	hasGoogleClientID := strings.TrimSpace(c.GoogleClientID) != ""
	hasGoogleClientSecret := strings.TrimSpace(c.GoogleClientSecret) != ""
	if hasGoogleClientID != hasGoogleClientSecret {
		return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}

	baseURL := strings.TrimSpace(c.BaseURL)
	if hasGoogleClientID && baseURL == "" {
		return fmt.Errorf("BASE_URL is required when Google sign-in is enabled")
	}

	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Hostname() == "" {
			return fmt.Errorf("BASE_URL must be a valid absolute URL")
		}
		if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
			return fmt.Errorf("BASE_URL must use https outside local development")
		}
	}

	if strings.TrimSpace(c.UploadBucket) != "" && strings.TrimSpace(c.UploadRegion) == "" {
		return fmt.Errorf("UPLOAD_REGION is required when UPLOAD_BUCKET is set")
	}

	return nil
}

// EmailEnabled reports whether an outbound email provider is configured.
// Missing configuration is a disabled state, not an error.
func (c *Config) EmailEnabled() bool {
	return c != nil && c.EmailProvider != ""
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
