package session

import (
	"context"
	"net/http"
)

type contextKey struct{}

// Middleware adds session data to the request context when present.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.GetSession(r.Context(), r)
		if err == nil {
			ctx := context.WithValue(r.Context(), contextKey{}, session)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests without a valid session. The admin API is
// consumed by the dashboard, so the rejection is a JSON 401 rather than a
// redirect.
func (m *Manager) RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := m.GetSession(r.Context(), r)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"message":"authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), contextKey{}, session)
			r = r.WithContext(ctx)
			next.ServeHTTP(w, r)
		})
	}
}

// FromContext retrieves session data from the request context.
func FromContext(ctx context.Context) *Data {
	if ctx == nil {
		return nil
	}
	session, ok := ctx.Value(contextKey{}).(*Data)
	if !ok {
		return nil
	}
	return session
}
