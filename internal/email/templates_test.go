package email

import (
	"strings"
	"testing"

	"github.com/storedeskapp/storedesk/internal/models"
)

func TestRenderStatusUpdate(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}

	subject, html, text, err := renderer.Render(TemplateStatusUpdate, StatusUpdateData{
		CustomerName: "Asha",
		OrderID:      "64a1f2e8c9d0b1a2c3d4e5f6",
		StatusLabel:  StatusLabel(models.StatusDispatched),
		TrackingID:   "TRK123",
		StoreName:    "Storedesk",
	})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	if !strings.Contains(subject, "on its way") {
		t.Fatalf("subject missing status label: %q", subject)
	}
	for _, body := range []string{html, text} {
		if !strings.Contains(body, "TRK123") {
			t.Fatalf("body missing tracking id: %q", body)
		}
		if !strings.Contains(body, "Asha") {
			t.Fatalf("body missing customer name: %q", body)
		}
	}
}

func TestRenderStatusUpdateWithoutTracking(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}

	_, html, _, err := renderer.Render(TemplateStatusUpdate, StatusUpdateData{
		CustomerName: "Asha",
		OrderID:      "64a1f2e8c9d0b1a2c3d4e5f6",
		StatusLabel:  StatusLabel(models.StatusDelivered),
		StoreName:    "Storedesk",
	})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if strings.Contains(html, "Tracking number") {
		t.Fatalf("expected tracking section omitted, got %q", html)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}

	if _, _, _, err := renderer.Render("nope", nil); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestStatusLabelCoversAllStatuses(t *testing.T) {
	t.Parallel()

	for _, status := range models.AllStatuses() {
		if StatusLabel(status) == "" {
			t.Fatalf("empty label for status %s", status)
		}
	}
}
