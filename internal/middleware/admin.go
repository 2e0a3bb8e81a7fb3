package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/sessionkeeper/internal/audit"
	apperrors "github.com/openclaw/sessionkeeper/internal/errors"
	"github.com/openclaw/sessionkeeper/internal/httputil"
	"github.com/openclaw/sessionkeeper/internal/util"
)

type contextKey string

// AdminAuthMiddleware guards the admin API with a bearer token checked
// against a bcrypt hash.
type AdminAuthMiddleware struct {
	tokenHash string
}

func NewAdminAuthMiddleware(tokenHash string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{tokenHash: tokenHash}
}

func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.tokenHash == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Admin API is disabled"))
			return
		}

		token := extractToken(r)
		if token == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		if !util.CheckPasswordHash(token, m.tokenHash) {
			log.Warn().Str("path", r.URL.Path).Msg("admin auth middleware: invalid token attempt")
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAdminAuthFailure,
				Details: map[string]interface{}{"path": r.URL.Path},
			})
			httputil.WriteError(w, apperrors.InvalidToken("Invalid token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
