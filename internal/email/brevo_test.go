package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBrevoSend(t *testing.T) {
	t.Parallel()

	var got brevoEmail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "test-key" {
			t.Errorf("missing api-key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	provider := NewBrevoProviderWithEndpoint("test-key", "orders@example.com", "Storedesk", server.URL)
	err := provider.Send(context.Background(), &Message{
		To:      Recipient{Email: "asha@example.com", Name: "Asha"},
		Subject: "Order update",
		HTML:    "<p>hello</p>",
	})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if got.Sender.Email != "orders@example.com" || got.Sender.Name != "Storedesk" {
		t.Fatalf("unexpected sender: %+v", got.Sender)
	}
	if len(got.To) != 1 || got.To[0].Email != "asha@example.com" {
		t.Fatalf("unexpected recipients: %+v", got.To)
	}
}

func TestBrevoSendAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(brevoErrorResponse{Code: "invalid_parameter", Message: "sender not allowed"})
	}))
	defer server.Close()

	provider := NewBrevoProviderWithEndpoint("test-key", "orders@example.com", "", server.URL)
	err := provider.Send(context.Background(), &Message{
		To:      Recipient{Email: "asha@example.com"},
		Subject: "Order update",
		Text:    "hello",
	})
	if err == nil {
		t.Fatalf("expected error from API rejection")
	}
	if !strings.Contains(err.Error(), "sender not allowed") {
		t.Fatalf("expected provider message in error, got %v", err)
	}
}

func TestBrevoSendRequiresBody(t *testing.T) {
	t.Parallel()

	provider := NewBrevoProvider("test-key", "orders@example.com", "")
	if err := provider.Send(context.Background(), &Message{To: Recipient{Email: "a@b.c"}, Subject: "x"}); err == nil {
		t.Fatalf("expected error for empty body")
	}
}

func TestDisabledProvider(t *testing.T) {
	t.Parallel()

	err := Disabled().Send(context.Background(), &Message{To: Recipient{Email: "a@b.c"}, Subject: "x", Text: "y"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
