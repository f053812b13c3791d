package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/storedeskapp/storedesk/internal/db"
	"github.com/storedeskapp/storedesk/internal/models"
)

const testTokenSecret = "0123456789abcdef0123456789abcdef"

type fakeAuthStore struct {
	mu        sync.Mutex
	customers map[primitive.ObjectID]*models.Customer
}

func newFakeAuthStore(customers ...*models.Customer) *fakeAuthStore {
	store := &fakeAuthStore{customers: map[primitive.ObjectID]*models.Customer{}}
	for _, customer := range customers {
		store.customers[customer.ID] = customer
	}
	return store
}

func (f *fakeAuthStore) FindByEmail(_ context.Context, email string) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, customer := range f.customers {
		if customer.Email == strings.ToLower(strings.TrimSpace(email)) {
			snapshot := *customer
			return &snapshot, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeAuthStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	customer, ok := f.customers[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	snapshot := *customer
	return &snapshot, nil
}

func (f *fakeAuthStore) SetResetTokenHash(_ context.Context, id primitive.ObjectID, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	customer, ok := f.customers[id]
	if !ok {
		return db.ErrNotFound
	}
	customer.ResetTokenHash = tokenHash
	return nil
}

func (f *fakeAuthStore) UpdatePassword(_ context.Context, id primitive.ObjectID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	customer, ok := f.customers[id]
	if !ok {
		return db.ErrNotFound
	}
	customer.PasswordHash = passwordHash
	customer.ResetTokenHash = ""
	return nil
}

type capturingResetSender struct {
	mu       sync.Mutex
	resetURL string
	to       string
	calls    int
}

func (c *capturingResetSender) SendPasswordReset(_ context.Context, to models.Contact, resetURL string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.to = to.Email
	c.resetURL = resetURL
	return nil
}

func adminAccount(t *testing.T, password string) *models.Customer {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return &models.Customer{
		ID:           primitive.NewObjectID(),
		Name:         "Meera Iyer",
		Email:        "meera@example.com",
		PasswordHash: string(hash),
		IsAdmin:      true,
	}
}

func newAuthService(t *testing.T, store authStore, sender resetEmailSender) *AuthService {
	t.Helper()
	service, err := NewAuthService(AuthConfig{
		BaseURL:     "https://admin.example.com",
		TokenSecret: testTokenSecret,
	}, store, nil, sender, discardLogger())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return service
}

func TestLogin(t *testing.T) {
	t.Parallel()

	admin := adminAccount(t, "correct horse battery")
	nonAdmin := &models.Customer{
		ID:           primitive.NewObjectID(),
		Email:        "shopper@example.com",
		PasswordHash: admin.PasswordHash,
		IsAdmin:      false,
	}
	service := newAuthService(t, newFakeAuthStore(admin, nonAdmin), nil)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid admin login", "meera@example.com", "correct horse battery", nil},
		{"wrong password", "meera@example.com", "guess", ErrInvalidCredentials},
		{"unknown account", "nobody@example.com", "correct horse battery", ErrInvalidCredentials},
		{"non-admin account", "shopper@example.com", "correct horse battery", ErrInvalidCredentials},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			contact, err := service.Login(context.Background(), tc.email, tc.password)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr == nil {
				if contact == nil || contact.Email != tc.email {
					t.Fatalf("contact = %+v", contact)
				}
			} else if contact != nil {
				t.Fatalf("contact = %+v, want nil", contact)
			}
		})
	}
}

func TestGoogleLoginUnavailableWithoutCredentials(t *testing.T) {
	t.Parallel()

	service := newAuthService(t, newFakeAuthStore(), nil)
	if _, err := service.StartGoogleLogin(context.Background()); !errors.Is(err, ErrAuthUnavailable) {
		t.Fatalf("err = %v, want ErrAuthUnavailable", err)
	}
	if _, err := service.CompleteGoogleLogin(context.Background(), "state", "code"); !errors.Is(err, ErrAuthUnavailable) {
		t.Fatalf("err = %v, want ErrAuthUnavailable", err)
	}
}

func TestPasswordResetRoundTrip(t *testing.T) {
	t.Parallel()

	admin := adminAccount(t, "old password!!")
	store := newFakeAuthStore(admin)
	sender := &capturingResetSender{}
	service := newAuthService(t, store, sender)

	if err := service.RequestPasswordReset(context.Background(), admin.Email); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if sender.calls != 1 || sender.to != admin.Email {
		t.Fatalf("sender = %+v", sender)
	}

	idx := strings.Index(sender.resetURL, "token=")
	if idx < 0 {
		t.Fatalf("reset URL carries no token: %s", sender.resetURL)
	}
	token := sender.resetURL[idx+len("token="):]

	if err := service.CompletePasswordReset(context.Background(), token, "brand new password"); err != nil {
		t.Fatalf("CompletePasswordReset: %v", err)
	}

	if _, err := service.Login(context.Background(), admin.Email, "brand new password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := service.Login(context.Background(), admin.Email, "old password!!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still works: %v", err)
	}

	// The stored hash is cleared on use, so the token is single-use.
	if err := service.CompletePasswordReset(context.Background(), token, "third password"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("token replay: err = %v, want ErrResetTokenInvalid", err)
	}
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	t.Parallel()

	sender := &capturingResetSender{}
	service := newAuthService(t, newFakeAuthStore(), sender)

	if err := service.RequestPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if sender.calls != 0 {
		t.Fatalf("sent %d reset emails for an unknown account", sender.calls)
	}
}

func TestCompletePasswordResetRejectsForgedToken(t *testing.T) {
	t.Parallel()

	admin := adminAccount(t, "irrelevant")
	service := newAuthService(t, newFakeAuthStore(admin), nil)

	err := service.CompletePasswordReset(context.Background(), "not-a-jwt", "whatever password")
	if !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("err = %v, want ErrResetTokenInvalid", err)
	}
}
