package lifecycle

import (
	"errors"
	"strings"
	"testing"

	"github.com/storedeskapp/storedesk/internal/models"
)

func TestAllowAllPermitsEveryTransition(t *testing.T) {
	t.Parallel()

	policy := AllowAll()
	for _, from := range models.AllStatuses() {
		for _, to := range models.AllStatuses() {
			if err := policy.Allow(from, to); err != nil {
				t.Fatalf("Allow(%s, %s) = %v, want nil", from, to, err)
			}
		}
	}
}

func TestLoadGraphPolicy(t *testing.T) {
	t.Parallel()

	doc := `
transitions:
  placed: [dispatched, refund-initiated]
  dispatched: [delivered]
`
	policy, err := LoadGraphPolicy(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadGraphPolicy() error: %v", err)
	}

	tests := []struct {
		name    string
		from    models.OrderStatus
		to      models.OrderStatus
		allowed bool
	}{
		{"placed to dispatched", models.StatusPlaced, models.StatusDispatched, true},
		{"dispatched to delivered", models.StatusDispatched, models.StatusDelivered, true},
		{"placed to delivered skips dispatch", models.StatusPlaced, models.StatusDelivered, false},
		{"same status is a no-op", models.StatusDelivered, models.StatusDelivered, true},
		{"unlisted source blocks everything", models.StatusRefundComplete, models.StatusPlaced, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := policy.Allow(tc.from, tc.to)
			if tc.allowed && err != nil {
				t.Fatalf("Allow(%s, %s) = %v, want nil", tc.from, tc.to, err)
			}
			if !tc.allowed {
				if err == nil {
					t.Fatalf("Allow(%s, %s) = nil, want error", tc.from, tc.to)
				}
				if !errors.Is(err, ErrTransitionNotAllowed) {
					t.Fatalf("expected ErrTransitionNotAllowed, got %v", err)
				}
			}
		})
	}
}

func TestLoadGraphPolicyRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	doc := `
transitions:
  placed: [shipped]
`
	if _, err := LoadGraphPolicy(strings.NewReader(doc)); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestLoadGraphPolicyRejectsEmptyGraph(t *testing.T) {
	t.Parallel()

	if _, err := LoadGraphPolicy(strings.NewReader("transitions: {}")); err == nil {
		t.Fatalf("expected error for empty graph")
	}
}
