package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoProvider implements the Provider interface for Brevo transactional email.
type BrevoProvider struct {
	apiKey   string
	from     string
	fromName string
	endpoint string
	client   *http.Client
}

// NewBrevoProvider creates a new Brevo provider.
func NewBrevoProvider(apiKey, from, fromName string) *BrevoProvider {
	return &BrevoProvider{
		apiKey:   apiKey,
		from:     from,
		fromName: fromName,
		endpoint: brevoEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// NewBrevoProviderWithEndpoint allows overriding the API endpoint, used in tests.
func NewBrevoProviderWithEndpoint(apiKey, from, fromName, endpoint string) *BrevoProvider {
	p := NewBrevoProvider(apiKey, from, fromName)
	p.endpoint = endpoint
	return p
}

type brevoParty struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoEmail struct {
	Sender      brevoParty   `json:"sender"`
	To          []brevoParty `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent,omitempty"`
	TextContent string       `json:"textContent,omitempty"`
}

type brevoErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Send sends an email via the Brevo API.
func (p *BrevoProvider) Send(ctx context.Context, msg *Message) error {
	if msg == nil {
		return fmt.Errorf("message is required")
	}
	if p.apiKey == "" {
		return ErrNotConfigured
	}
	if msg.HTML == "" && msg.Text == "" {
		return fmt.Errorf("email body is empty")
	}

	payload := brevoEmail{
		Sender:      brevoParty{Email: p.from, Name: p.fromName},
		To:          []brevoParty{{Email: msg.To.Email, Name: msg.To.Name}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		TextContent: msg.Text,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr brevoErrorResponse
	if unmarshalErr := json.Unmarshal(body, &apiErr); unmarshalErr == nil && apiErr.Message != "" {
		return fmt.Errorf("brevo rejected email (%s): %s", apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("brevo rejected email: status %d", resp.StatusCode)
}
