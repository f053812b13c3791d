package email

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/storedeskapp/storedesk/internal/models"
)

// StatusUpdateData feeds the order status notification templates.
type StatusUpdateData struct {
	CustomerName string
	OrderID      string
	StatusLabel  string
	TrackingID   string
	StoreName    string
}

// ConfirmationData feeds the order confirmation templates.
type ConfirmationData struct {
	CustomerName string
	OrderID      string
	ItemCount    int
	Total        string
	StoreName    string
}

// PasswordResetData feeds the password reset templates.
type PasswordResetData struct {
	Name     string
	ResetURL string
	TTL      string
}

const (
	TemplateStatusUpdate      = "status_update"
	TemplateOrderConfirmation = "order_confirmation"
	TemplatePasswordReset     = "password_reset"
)

type emailTemplate struct {
	Subject string
	HTML    string
	Text    string
}

// Renderer renders the built-in transactional email templates.
type Renderer struct {
	templates map[string]emailTemplate
	parsed    *template.Template
}

// NewRenderer creates a renderer with the built-in templates parsed eagerly
// so a broken template fails at startup rather than mid-send.
func NewRenderer() (*Renderer, error) {
	templates := map[string]emailTemplate{
		TemplateStatusUpdate: {
			Subject: "Your order {{.OrderID}} is now {{.StatusLabel}}",
			HTML:    statusUpdateHTML,
			Text:    statusUpdateText,
		},
		TemplateOrderConfirmation: {
			Subject: "Order {{.OrderID}} confirmed - {{.StoreName}}",
			HTML:    confirmationHTML,
			Text:    confirmationText,
		},
		TemplatePasswordReset: {
			Subject: "Reset your password",
			HTML:    passwordResetHTML,
			Text:    passwordResetText,
		},
	}

	parsed := template.New("email")
	for name, tmpl := range templates {
		for suffix, body := range map[string]string{
			"subject": tmpl.Subject,
			"html":    tmpl.HTML,
			"text":    tmpl.Text,
		} {
			if _, err := parsed.New(name + "." + suffix).Parse(body); err != nil {
				return nil, fmt.Errorf("failed to parse template %s.%s: %w", name, suffix, err)
			}
		}
	}

	return &Renderer{templates: templates, parsed: parsed}, nil
}

// Render produces the subject and bodies for a named template.
func (r *Renderer) Render(name string, data any) (subject, html, text string, err error) {
	if _, ok := r.templates[name]; !ok {
		return "", "", "", fmt.Errorf("unknown email template: %s", name)
	}

	render := func(suffix string) (string, error) {
		var buf bytes.Buffer
		if execErr := r.parsed.ExecuteTemplate(&buf, name+"."+suffix, data); execErr != nil {
			return "", fmt.Errorf("failed to render template %s.%s: %w", name, suffix, execErr)
		}
		return buf.String(), nil
	}

	if subject, err = render("subject"); err != nil {
		return "", "", "", err
	}
	if html, err = render("html"); err != nil {
		return "", "", "", err
	}
	if text, err = render("text"); err != nil {
		return "", "", "", err
	}
	return subject, html, text, nil
}

// StatusLabel renders a lifecycle status in customer-facing language.
func StatusLabel(status models.OrderStatus) string {
	switch status {
	case models.StatusPlaced:
		return "placed"
	case models.StatusDispatched:
		return "on its way"
	case models.StatusDelivered:
		return "delivered"
	case models.StatusRefundInitiated:
		return "being refunded"
	case models.StatusRefundComplete:
		return "refunded"
	default:
		return string(status)
	}
}

const statusUpdateHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Order update</h2>
  <p>Hi {{.CustomerName}},</p>
  <p>Your order <strong>{{.OrderID}}</strong> is now <strong>{{.StatusLabel}}</strong>.</p>
  {{if .TrackingID}}<p>Tracking number: <strong>{{.TrackingID}}</strong></p>{{end}}
  <p>Thanks for shopping with {{.StoreName}}.</p>
</body>
</html>`

const statusUpdateText = `Hi {{.CustomerName}},

Your order {{.OrderID}} is now {{.StatusLabel}}.
{{if .TrackingID}}Tracking number: {{.TrackingID}}
{{end}}
Thanks for shopping with {{.StoreName}}.`

const confirmationHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Thanks for your order!</h2>
  <p>Hi {{.CustomerName}},</p>
  <p>We received your order <strong>{{.OrderID}}</strong> ({{.ItemCount}} item{{if ne .ItemCount 1}}s{{end}}, total {{.Total}}).</p>
  <p>We will email you again when it ships.</p>
  <p>— {{.StoreName}}</p>
</body>
</html>`

const confirmationText = `Hi {{.CustomerName}},

We received your order {{.OrderID}} ({{.ItemCount}} item{{if ne .ItemCount 1}}s{{end}}, total {{.Total}}).
We will email you again when it ships.

- {{.StoreName}}`

const passwordResetHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Password reset</h2>
  <p>Hi {{.Name}},</p>
  <p>Someone requested a password reset for your account. The link below is valid for {{.TTL}}.</p>
  <p><a href="{{.ResetURL}}">Reset your password</a></p>
  <p>If you did not request this, you can ignore this email.</p>
</body>
</html>`

const passwordResetText = `Hi {{.Name}},

Someone requested a password reset for your account. The link below is valid for {{.TTL}}.

{{.ResetURL}}

If you did not request this, you can ignore this email.`
