// Package cache provides short-lived caching for customer contact lookups
// and OAuth state nonces.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("key not found")

type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// ContactKey namespaces cached customer contact records.
func ContactKey(customerID string) string {
	return fmt.Sprintf("contact:%s", customerID)
}

// OAuthStateKey namespaces pending OAuth login states.
func OAuthStateKey(state string) string {
	return fmt.Sprintf("oauth_state:%s", state)
}
