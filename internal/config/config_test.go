package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		MongoURI:              "mongodb://localhost:27017",
		MongoDatabase:         "storedesk",
		AuthTokenSecret:       strings.Repeat("s", 32),
		CacheProvider:         "memory",
		SessionStoreProvider:  "memory",
		RedisConnectionString: "redis://localhost:6379/0",
		UploadRegion:          "us-east-1",
		LogFormat:             "text",
		Port:                  "8080",
	}
}

func TestValidateAuthTokenSecretLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{
			name:    "valid 32-byte secret",
			secret:  strings.Repeat("s", 32),
			wantErr: false,
		},
		{
			name:    "invalid short secret",
			secret:  "short",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.AuthTokenSecret = tt.secret

			err := cfg.validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateEmailProviderRequiresCredentials(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.EmailProvider = "brevo"

	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error for provider without api key and from address")
	}

	cfg.EmailAPIKey = "key"
	cfg.EmailFrom = "orders@example.com"
	if err := cfg.validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateGoogleCredentialsMustBePaired(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.GoogleClientID = "client-id"

	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error for client id without secret")
	}

	cfg.GoogleClientSecret = "client-secret"
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error for google sign-in without base url")
	}

	cfg.BaseURL = "https://admin.example.com"
	if err := cfg.validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateBaseURLRequiresHTTPS(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.BaseURL = "http://admin.example.com"

	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error for non-https base url")
	}

	cfg.BaseURL = "http://localhost:8080"
	if err := cfg.validate(); err != nil {
		t.Fatalf("expected localhost http to be allowed, got %v", err)
	}
}

func TestValidateSessionStoreProvider(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.SessionStoreProvider = "invalid"

	err := cfg.validate()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "SessionStoreProvider") || !strings.Contains(err.Error(), "oneof") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEmailEnabled(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if cfg.EmailEnabled() {
		t.Fatalf("expected email disabled without provider")
	}

	cfg.EmailProvider = "resend"
	if !cfg.EmailEnabled() {
		t.Fatalf("expected email enabled with provider set")
	}
}
