package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/storedeskapp/storedesk/internal/cache"
	"github.com/storedeskapp/storedesk/internal/db"
	"github.com/storedeskapp/storedesk/internal/logging"
	"github.com/storedeskapp/storedesk/internal/models"
)

var (
	ErrAuthUnavailable    = errors.New("auth method unavailable")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthInvalidState   = errors.New("oauth state is invalid or expired")
	ErrAuthCodeExchange   = errors.New("failed to exchange oauth code")
	ErrAuthGetGoogleUser  = errors.New("failed to fetch google user")
	ErrResetTokenInvalid  = errors.New("password reset token is invalid or expired")
)

const (
	oauthStateTTL = 10 * time.Minute
	resetTokenTTL = time.Hour
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type authStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error)
	SetResetTokenHash(ctx context.Context, id primitive.ObjectID, tokenHash string) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
}

type resetEmailSender interface {
	SendPasswordReset(ctx context.Context, to models.Contact, resetURL string, ttl time.Duration) error
}

type googleUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type StartGoogleLoginResult struct {
	State            string
	AuthorizationURL string
}

// AuthService authenticates back-office operators. Only customers with
// the admin flag may log in, through either password or Google OAuth.
type AuthService struct {
	customers   authStore
	cache       cache.Provider
	emailSender resetEmailSender
	oauthConfig *oauth2.Config
	tokenSecret []byte
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
}

type AuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	BaseURL            string
	TokenSecret        string
}

func NewAuthService(cfg AuthConfig, customers authStore, cacheProvider cache.Provider, emailSender resetEmailSender, logger *slog.Logger) (*AuthService, error) {
	if customers == nil {
		return nil, fmt.Errorf("auth service customer store is required")
	}
	if strings.TrimSpace(cfg.TokenSecret) == "" {
		return nil, fmt.Errorf("auth service token secret is required")
	}
	if emailSender == nil {
		emailSender = noopStatusEmailSender{}
	}

	var oauthConfig *oauth2.Config
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		oauthConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
			RedirectURL:  strings.TrimRight(cfg.BaseURL, "/") + "/api/auth/google/callback",
		}
	}

	return &AuthService{
		customers:   customers,
		cache:       cacheProvider,
		emailSender: emailSender,
		oauthConfig: oauthConfig,
		tokenSecret: []byte(cfg.TokenSecret),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}, nil
}

func (s *AuthService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Login verifies an email/password pair against a stored admin record.
// Missing accounts, wrong passwords, and non-admin accounts all map to
// the same error so responses do not reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Contact, error) {
	logger := s.loggerFromContext(ctx)

	customer, err := s.customers.FindByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if !customer.IsAdmin || customer.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)); err != nil {
		logger.Info("rejected login attempt", "email", customer.Email)
		return nil, ErrInvalidCredentials
	}

	contact := customer.ContactView()
	return &contact, nil
}

// StartGoogleLogin generates an OAuth state nonce and the authorization
// URL the browser should be redirected to.
func (s *AuthService) StartGoogleLogin(ctx context.Context) (StartGoogleLoginResult, error) {
	result := StartGoogleLoginResult{}
	if s.oauthConfig == nil {
		return result, ErrAuthUnavailable
	}

	state, err := generateOAuthState()
	if err != nil {
		return result, fmt.Errorf("failed to generate oauth state: %w", err)
	}
	if err := s.cache.Set(ctx, cache.OAuthStateKey(state), "pending", oauthStateTTL); err != nil {
		return result, fmt.Errorf("failed to store oauth state: %w", err)
	}

	result.State = state
	result.AuthorizationURL = s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
	return result, nil
}

// CompleteGoogleLogin exchanges the OAuth code, fetches the Google
// profile, and maps it onto a stored admin account by email.
func (s *AuthService) CompleteGoogleLogin(ctx context.Context, state, code string) (*models.Contact, error) {
	if s.oauthConfig == nil {
		return nil, ErrAuthUnavailable
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrAuthCodeExchange
	}

	// One-shot state: delete on first sight so a replayed callback fails.
	stateKey := cache.OAuthStateKey(state)
	if _, err := s.cache.Get(ctx, stateKey); err != nil {
		return nil, ErrAuthInvalidState
	}
	if err := s.cache.Delete(ctx, stateKey); err != nil {
		s.loggerFromContext(ctx).Warn("failed to delete oauth state", "error", err)
	}

	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthCodeExchange, err)
	}

	user, err := s.fetchGoogleUser(ctx, token)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.FindByEmail(ctx, user.Email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if !customer.IsAdmin {
		return nil, ErrInvalidCredentials
	}

	contact := customer.ContactView()
	return &contact, nil
}

func (s *AuthService) fetchGoogleUser(ctx context.Context, token *oauth2.Token) (*googleUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthGetGoogleUser, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthGetGoogleUser, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrAuthGetGoogleUser, resp.StatusCode)
	}

	var user googleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthGetGoogleUser, err)
	}
	if user.Email == "" {
		return nil, fmt.Errorf("%w: profile has no email", ErrAuthGetGoogleUser)
	}
	return &user, nil
}

// RequestPasswordReset issues a single-use reset token and emails the
// reset link. It reports success even for unknown emails so the endpoint
// cannot be used to probe which accounts exist.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailAddress string) error {
	logger := s.loggerFromContext(ctx)

	customer, err := s.customers.FindByEmail(ctx, emailAddress)
	if errors.Is(err, db.ErrNotFound) {
		logger.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}
	if !customer.IsAdmin {
		logger.Info("password reset requested for non-admin account", "email", customer.Email)
		return nil
	}

	token, err := s.issueResetToken(customer.ID)
	if err != nil {
		return err
	}
	if err := s.customers.SetResetTokenHash(ctx, customer.ID, hashToken(token)); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := s.baseURL + "/reset-password?token=" + token
	contact := customer.ContactView()
	if err := s.emailSender.SendPasswordReset(ctx, contact, resetURL, resetTokenTTL); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	logger.Info("password reset email sent", "email", customer.Email)
	return nil
}

// CompletePasswordReset validates a reset token and replaces the
// password. The stored token hash is cleared in the same write, so a
// token works exactly once.
func (s *AuthService) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	customerID, err := s.parseResetToken(token)
	if err != nil {
		return ErrResetTokenInvalid
	}

	customer, err := s.customers.FindByID(ctx, customerID)
	if errors.Is(err, db.ErrNotFound) {
		return ErrResetTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}
	if customer.ResetTokenHash == "" {
		return ErrResetTokenInvalid
	}
	if subtle.ConstantTimeCompare([]byte(hashToken(token)), []byte(customer.ResetTokenHash)) != 1 {
		return ErrResetTokenInvalid
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.customers.UpdatePassword(ctx, customer.ID, string(passwordHash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.loggerFromContext(ctx).Info("password reset completed", "email", customer.Email)
	return nil
}

func (s *AuthService) issueResetToken(customerID primitive.ObjectID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   customerID.Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(resetTokenTTL)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.tokenSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}
	return token, nil
}

func (s *AuthService) parseResetToken(token string) (primitive.ObjectID, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.tokenSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return primitive.NilObjectID, err
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return primitive.NilObjectID, fmt.Errorf("reset token has no subject")
	}
	return primitive.ObjectIDFromHex(claims.Subject)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateOAuthState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
