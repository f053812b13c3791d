// Package app wires configuration, storage, and services together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/storedeskapp/storedesk/internal/cache"
	"github.com/storedeskapp/storedesk/internal/config"
	"github.com/storedeskapp/storedesk/internal/db"
	"github.com/storedeskapp/storedesk/internal/email"
	"github.com/storedeskapp/storedesk/internal/handlers"
	"github.com/storedeskapp/storedesk/internal/lifecycle"
	"github.com/storedeskapp/storedesk/internal/services"
	"github.com/storedeskapp/storedesk/internal/session"
	"github.com/storedeskapp/storedesk/internal/uploads"
	"github.com/storedeskapp/storedesk/internal/validation"
)

type App struct {
	Config         *config.Config
	Logger         *slog.Logger
	MongoClient    *mongo.Client
	CacheProvider  cache.Provider
	SessionManager *session.Manager
	Handlers       *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	mongoClient, database, err := db.Connect(startupCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}
	closeMongo := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if disconnectErr := mongoClient.Disconnect(disconnectCtx); disconnectErr != nil {
			logger.Warn("failed to disconnect mongo client", "error", disconnectErr)
		}
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		closeMongo()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	sessionStore, err := session.NewStore(startupCtx, session.Config{
		Provider:              cfg.SessionStoreProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		closeMongo()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	sessionManager := session.NewManager(sessionStore, handlers.SecureCookiesFromConfig(cfg))

	cleanup := func() {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		closeMongo()
	}

	emailProvider, err := email.NewProvider(email.Config{
		Provider: cfg.EmailProvider,
		APIKey:   cfg.EmailAPIKey,
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}
	renderer, err := email.NewRenderer()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to initialize email templates: %w", err)
	}
	emailSender := services.NewTemplateEmailSender(emailProvider, renderer, cfg.EmailFromName)

	policy, err := loadTransitionPolicy(cfg)
	if err != nil {
		cleanup()
		return nil, err
	}

	orderStore := db.NewOrderStore(database)
	customerStore := db.NewCustomerStore(database)
	customerResolver := services.NewCustomerResolver(customerStore, cacheProvider, logger.With("component", "customer_resolver"))
	orderService := services.NewOrderService(
		orderStore,
		customerResolver,
		emailSender,
		policy,
		validation.New(),
		logger.With("component", "order_service"),
	)

	authService, err := services.NewAuthService(services.AuthConfig{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		BaseURL:            cfg.BaseURL,
		TokenSecret:        cfg.AuthTokenSecret,
	}, customerStore, cacheProvider, emailSender, logger.With("component", "auth_service"))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	var uploader uploads.Uploader
	if strings.TrimSpace(cfg.UploadBucket) != "" {
		uploader, err = uploads.NewS3Uploader(startupCtx, cfg.UploadBucket, cfg.UploadRegion, cfg.UploadPublicBaseURL)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to initialize uploader: %w", err)
		}
	}

	h, err := handlers.New(handlers.Dependencies{
		Config:           cfg,
		MongoClient:      mongoClient,
		OrderService:     orderService,
		CustomerResolver: customerResolver,
		AuthService:      authService,
		SessionManager:   sessionManager,
		Uploader:         uploader,
		Logger:           logger,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:         cfg,
		Logger:         logger,
		MongoClient:    mongoClient,
		CacheProvider:  cacheProvider,
		SessionManager: sessionManager,
		Handlers:       h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.SessionManager != nil {
		closeSessionManager(a.Logger, a.SessionManager)
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.MongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.MongoClient.Disconnect(ctx); err != nil && a.Logger != nil {
			a.Logger.Warn("failed to disconnect mongo client", "error", err)
		}
	}
}

func loadTransitionPolicy(cfg *config.Config) (lifecycle.TransitionPolicy, error) {
	if strings.TrimSpace(cfg.TransitionPolicyFile) == "" {
		return lifecycle.AllowAll(), nil
	}
	policy, err := lifecycle.LoadGraphPolicyFile(cfg.TransitionPolicyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load transition policy: %w", err)
	}
	return policy, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: cfg.LogLevel,
	}))
}

func closeSessionManager(logger *slog.Logger, manager *session.Manager) {
	if manager == nil {
		return
	}
	if err := manager.Close(); err != nil && logger != nil {
		logger.Warn("failed to close session manager", "error", err)
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
