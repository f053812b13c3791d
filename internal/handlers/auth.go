package handlers

import (
	"errors"
	"net/http"

	"github.com/storedeskapp/storedesk/internal/services"
	"github.com/storedeskapp/storedesk/internal/session"
	"github.com/storedeskapp/storedesk/internal/validation"
)

var validate = validation.New()

// Login handles POST /api/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromContext(r.Context())

	var payload validation.LoginRequest
	if err := h.decodeJSON(r, &payload); err != nil {
		h.writeJSON(r, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if fields := validation.FieldErrors(validate, payload); fields != nil {
		h.writeJSON(r, w, http.StatusBadRequest, map[string]any{"errors": fields})
		return
	}

	contact, err := h.authService.Login(r.Context(), payload.Email, payload.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		h.writeJSON(r, w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
		return
	}
	if err != nil {
		logger.Error("login failed", "error", err)
		h.writeJSON(r, w, http.StatusInternalServerError, map[string]string{"error": "login unavailable"})
		return
	}

	if _, err := h.sessionManager.CreateSession(r.Context(), w, &session.Data{
		UserID: contact.ID.Hex(),
		Email:  contact.Email,
		Name:   contact.Name,
	}); err != nil {
		logger.Error("failed to create session", "error", err)
		h.writeJSON(r, w, http.StatusInternalServerError, map[string]string{"error": "login unavailable"})
		return
	}

	h.writeJSON(r, w, http.StatusOK, map[string]any{"user": contact})
}

// Logout handles POST /api/auth/logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionManager.DestroySession(r.Context(), w, r); err != nil {
		h.loggerFromContext(r.Context()).Warn("failed to destroy session", "error", err)
	}
	h.writeJSON(r, w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me handles GET /api/auth/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	data := session.FromContext(r.Context())
	if data == nil {
		h.writeJSON(r, w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
		return
	}
	h.writeJSON(r, w, http.StatusOK, map[string]any{"user": data})
}

// GoogleLogin handles GET /api/auth/google/login.
func (h *Handlers) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	result, err := h.authService.StartGoogleLogin(r.Context())
	if errors.Is(err, services.ErrAuthUnavailable) {
		h.writeJSON(r, w, http.StatusNotImplemented, map[string]string{"error": "google login is not configured"})
		return
	}
	if err != nil {
		h.loggerFromContext(r.Context()).Error("failed to start google login", "error", err)
		h.writeJSON(r, w, http.StatusInternalServerError, map[string]string{"error": "login unavailable"})
		return
	}

	http.Redirect(w, r, result.AuthorizationURL, http.StatusTemporaryRedirect)
}

// GoogleCallback handles GET /api/auth/google/callback.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromContext(r.Context())
	query := r.URL.Query()

	contact, err := h.authService.CompleteGoogleLogin(r.Context(), query.Get("state"), query.Get("code"))
	switch {
	case errors.Is(err, services.ErrAuthUnavailable):
		h.writeJSON(r, w, http.StatusNotImplemented, map[string]string{"error": "google login is not configured"})
		return
	case errors.Is(err, services.ErrAuthInvalidState), errors.Is(err, services.ErrAuthCodeExchange):
		logger.Warn("rejected google callback", "error", err)
		h.writeJSON(r, w, http.StatusBadRequest, map[string]string{"error": "oauth callback rejected"})
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		h.writeJSON(r, w, http.StatusUnauthorized, map[string]string{"error": "no admin account for this google user"})
		return
	case err != nil:
		logger.Error("google callback failed", "error", err)
		h.writeJSON(r, w, http.StatusInternalServerError, map[string]string{"error": "login unavailable"})
		return
	}

	if _, err := h.sessionManager.CreateSession(r.Context(), w, &session.Data{
		UserID: contact.ID.Hex(),
		Email:  contact.Email,
		Name:   contact.Name,
	}); err != nil {
		logger.Error("failed to create session", "error", err)
		h.writeJSON(r, w, http.StatusInternalServerError, map[string]string{"error": "login unavailable"})
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RequestPasswordReset handles POST /api/auth/password-reset.
func (h *Handlers) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var payload validation.PasswordResetRequest
	if err := h.decodeJSON(r, &payload); err != nil {
		h.writeJSON(r, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if fields := validation.FieldErrors(validate, payload); fields != nil {
		h.writeJSON(r, w, http.StatusBadRequest, map[string]any{"errors": fields})
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), payload.Email); err != nil {
		h.loggerFromContext(r.Context()).Error("password reset request failed", "error", err)
		h.writeJSON(r, w, http.StatusInternalServerError, map[string]string{"error": "password reset unavailable"})
		return
	}

	// Same response whether or not the account exists.
	h.writeJSON(r, w, http.StatusOK, map[string]string{"status": "if the account exists, a reset email is on its way"})
}

// CompletePasswordReset handles POST /api/auth/password-reset/complete.
func (h *Handlers) CompletePasswordReset(w http.ResponseWriter, r *http.Request) {
	var payload validation.PasswordResetComplete
	if err := h.decodeJSON(r, &payload); err != nil {
		h.writeJSON(r, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if fields := validation.FieldErrors(validate, payload); fields != nil {
		h.writeJSON(r, w, http.StatusBadRequest, map[string]any{"errors": fields})
		return
	}

	err := h.authService.CompletePasswordReset(r.Context(), payload.Token, payload.Password)
	if errors.Is(err, services.ErrResetTokenInvalid) {
		h.writeJSON(r, w, http.StatusBadRequest, map[string]string{"error": "reset token is invalid or expired"})
		return
	}
	if err != nil {
		h.loggerFromContext(r.Context()).Error("password reset completion failed", "error", err)
		h.writeJSON(r, w, http.StatusInternalServerError, map[string]string{"error": "password reset unavailable"})
		return
	}

	h.writeJSON(r, w, http.StatusOK, map[string]string{"status": "password updated"})
}
