// Package email provides the transactional email provider interface.
package email

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured marks sends attempted while no provider is configured.
// Missing configuration is a disabled state, not a crash; callers convert
// this into a "not configured" result.
var ErrNotConfigured = errors.New("email provider is not configured")

type Provider interface {
	Send(ctx context.Context, msg *Message) error
}

type Recipient struct {
	Email string
	Name  string
}

type Message struct {
	To      Recipient
	Subject string
	HTML    string
	Text    string
}

type Config struct {
	Provider string
	APIKey   string
	From     string
	FromName string
}

func NewProvider(config Config) (Provider, error) {
	switch config.Provider {
	case "":
		return Disabled(), nil
	case "brevo":
		return NewBrevoProvider(config.APIKey, config.From, config.FromName), nil
	case "resend":
		return NewResendProvider(config.APIKey, config.From, config.FromName), nil
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be either 'brevo' or 'resend'")
	}
}

type disabledProvider struct{}

// Disabled returns a provider that rejects every send with ErrNotConfigured.
func Disabled() Provider {
	return disabledProvider{}
}

func (disabledProvider) Send(context.Context, *Message) error {
	return ErrNotConfigured
}
