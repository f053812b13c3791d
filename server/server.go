// Package server assembles the HTTP router and server lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/storedeskapp/storedesk/internal/config"
	"github.com/storedeskapp/storedesk/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})

	// Public auth routes
	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.Use(h.MetricsContext)
	auth.HandleFunc("/login", h.Login).Methods("POST").Name("auth.login")
	auth.HandleFunc("/logout", h.Logout).Methods("POST").Name("auth.logout")
	auth.HandleFunc("/google/login", h.GoogleLogin).Methods("GET").Name("auth.google.login")
	auth.HandleFunc("/google/callback", h.GoogleCallback).Methods("GET").Name("auth.google.callback")
	auth.HandleFunc("/password-reset", h.RequestPasswordReset).Methods("POST").Name("auth.password_reset")
	auth.HandleFunc("/password-reset/complete", h.CompletePasswordReset).Methods("POST").Name("auth.password_reset.complete")

	// Protected API routes - require an operator session
	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.SessionMiddleware)
	api.Use(h.RequireAuth)
	api.Use(h.MetricsContext)
	api.Use(h.RequireSameOrigin)
	api.HandleFunc("/me", h.Me).Methods("GET").Name("auth.me")
	api.HandleFunc("/orders", h.ListOrders).Methods("GET").Name("orders.list")
	api.HandleFunc("/orders/confirmations/sweep", h.SendBulkConfirmations).Methods("POST").Name("orders.confirmations.sweep")
	api.HandleFunc("/orders/{id}", h.GetOrder).Methods("GET").Name("orders.get")
	api.HandleFunc("/orders/{id}", h.DeleteOrder).Methods("DELETE").Name("orders.delete")
	api.HandleFunc("/orders/{id}/status", h.UpdateOrderStatus).Methods("PUT").Name("orders.status")
	api.HandleFunc("/orders/{id}/paid", h.MarkOrderPaid).Methods("POST").Name("orders.paid")
	api.HandleFunc("/customers", h.ListCustomers).Methods("GET").Name("customers.list")
	api.HandleFunc("/uploads/images", h.UploadImage).Methods("POST").Name("uploads.images")

	return r
}
