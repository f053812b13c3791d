// Package handlers provides the HTTP surface of the back-office API.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/storedeskapp/storedesk/internal/config"
	"github.com/storedeskapp/storedesk/internal/logging"
	"github.com/storedeskapp/storedesk/internal/services"
	"github.com/storedeskapp/storedesk/internal/session"
	"github.com/storedeskapp/storedesk/internal/uploads"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// Handlers provides HTTP request handlers for the Storedesk back office.
type Handlers struct {
	config           *config.Config
	mongoClient      *mongo.Client
	orderService     *services.OrderService
	customerResolver *services.CustomerResolver
	authService      *services.AuthService
	sessionManager   *session.Manager
	uploader         uploads.Uploader
	logger           *slog.Logger
}

type Dependencies struct {
	Config           *config.Config
	MongoClient      *mongo.Client
	OrderService     *services.OrderService
	CustomerResolver *services.CustomerResolver
	AuthService      *services.AuthService
	SessionManager   *session.Manager
	Uploader         uploads.Uploader
	Logger           *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.MongoClient == nil {
		return nil, fmt.Errorf("handlers dependencies: mongo client is required")
	}
	if deps.OrderService == nil {
		return nil, fmt.Errorf("handlers dependencies: orderService is required")
	}
	if deps.CustomerResolver == nil {
		return nil, fmt.Errorf("handlers dependencies: customerResolver is required")
	}
	if deps.AuthService == nil {
		return nil, fmt.Errorf("handlers dependencies: authService is required")
	}
	if deps.SessionManager == nil {
		return nil, fmt.Errorf("handlers dependencies: sessionManager is required")
	}

	return &Handlers{
		config:           deps.Config,
		mongoClient:      deps.MongoClient,
		orderService:     deps.OrderService,
		customerResolver: deps.CustomerResolver,
		authService:      deps.AuthService,
		sessionManager:   deps.SessionManager,
		uploader:         deps.Uploader,
		logger:           logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	h.writeJSON(r, w, http.StatusOK, map[string]string{"status": "healthy"})
}

// SessionMiddleware adds session data to the request context.
func (h *Handlers) SessionMiddleware(next http.Handler) http.Handler {
	return h.sessionManager.Middleware(next)
}

func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return h.sessionManager.RequireAuth()(next)
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func (h *Handlers) writeJSON(r *http.Request, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

// decodeJSON reads a bounded JSON body into dst.
func (h *Handlers) decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBodyBytes)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}

func (h *Handlers) writeResult(r *http.Request, w http.ResponseWriter, result services.Result) {
	h.writeJSON(r, w, statusForResult(result), result)
}

// statusForResult derives the HTTP status from an operation result.
// Results carry operator-safe messages, so the mapping keys off shape
// rather than error values.
func statusForResult(result services.Result) int {
	switch {
	case result.Success:
		return http.StatusOK
	case result.Errors != nil:
		return http.StatusBadRequest
	case strings.Contains(result.Message, "not found"):
		return http.StatusNotFound
	case result.Message == services.GenericFailureMessage:
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}

func SecureCookiesFromConfig(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		if parsed, err := url.Parse(baseURL); err == nil {
			return strings.EqualFold(parsed.Scheme, "https")
		}
	}

	return cfg.Port == "443" || cfg.Port == "8443"
}
