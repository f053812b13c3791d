package services

import (
	"context"
	"fmt"
	"time"

	"github.com/storedeskapp/storedesk/internal/email"
	"github.com/storedeskapp/storedesk/internal/models"
)

// StatusEmailSender delivers the customer-facing emails the order
// lifecycle produces. Implementations must be safe for concurrent use.
type StatusEmailSender interface {
	SendStatusUpdate(ctx context.Context, to models.Contact, orderID string, status models.OrderStatus, trackingID string) error
	SendOrderConfirmation(ctx context.Context, to models.Contact, order *models.Order) error
	SendPasswordReset(ctx context.Context, to models.Contact, resetURL string, ttl time.Duration) error
}

// TemplateEmailSender renders the built-in templates and hands the
// rendered message to an email provider.
type TemplateEmailSender struct {
	provider  email.Provider
	renderer  *email.Renderer
	storeName string
}

func NewTemplateEmailSender(provider email.Provider, renderer *email.Renderer, storeName string) *TemplateEmailSender {
	return &TemplateEmailSender{
		provider:  provider,
		renderer:  renderer,
		storeName: storeName,
	}
}

func (s *TemplateEmailSender) SendStatusUpdate(ctx context.Context, to models.Contact, orderID string, status models.OrderStatus, trackingID string) error {
	return s.send(ctx, to, email.TemplateStatusUpdate, email.StatusUpdateData{
		CustomerName: to.Name,
		OrderID:      orderID,
		StatusLabel:  email.StatusLabel(status),
		TrackingID:   trackingID,
		StoreName:    s.storeName,
	})
}

func (s *TemplateEmailSender) SendOrderConfirmation(ctx context.Context, to models.Contact, order *models.Order) error {
	return s.send(ctx, to, email.TemplateOrderConfirmation, email.ConfirmationData{
		CustomerName: to.Name,
		OrderID:      order.ID.Hex(),
		ItemCount:    len(order.Items),
		Total:        formatPrice(order.TotalPrice),
		StoreName:    s.storeName,
	})
}

func (s *TemplateEmailSender) SendPasswordReset(ctx context.Context, to models.Contact, resetURL string, ttl time.Duration) error {
	return s.send(ctx, to, email.TemplatePasswordReset, email.PasswordResetData{
		Name:     to.Name,
		ResetURL: resetURL,
		TTL:      formatTTL(ttl),
	})
}

func (s *TemplateEmailSender) send(ctx context.Context, to models.Contact, template string, data any) error {
	subject, html, text, err := s.renderer.Render(template, data)
	if err != nil {
		return fmt.Errorf("failed to render %s email: %w", template, err)
	}
	return s.provider.Send(ctx, &email.Message{
		To:      email.Recipient{Email: to.Email, Name: to.Name},
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
}

// formatPrice renders an amount stored in the smallest currency unit.
func formatPrice(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}

func formatTTL(ttl time.Duration) string {
	if ttl >= time.Hour {
		hours := int(ttl.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	minutes := int(ttl.Minutes())
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
