package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"
)

type contextKey string

const userContextKey contextKey = "user"

func withUser(ctx context.Context, u core.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// currentUser returns the account attached by authenticate.
func currentUser(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(userContextKey).(core.User)
	return u, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticate resolves the bearer token to a live account. The role comes
// from the store, not the token, so demoted or deleted accounts lose access
// immediately.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.tokens.Parse(token)
		if err != nil {
			log.FromContext(ctx).DebugContext(ctx, "Rejected token", log.FieldError, err)
			writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		u, err := s.ledger.GetUser(ctx, claims.UserID)
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, r, http.StatusUnauthorized, "account no longer exists")
			return
		}
		if err != nil {
			s.internalError(w, r, "load session user", err)
			return
		}

		logger := log.FromContext(ctx).With(log.FieldUserID, u.ID)
		ctx = log.WithLogger(withUser(ctx, u), logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := currentUser(r.Context())
		if !ok || !u.IsAdmin() {
			writeError(w, r, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
