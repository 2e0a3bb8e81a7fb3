package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/sessionkeeper/internal/chat"
	"github.com/openclaw/sessionkeeper/internal/util"
)

// WebhookSecretHeader is where the bot API echoes the secret_token given to setWebhook.
const WebhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// MaxUpdateSize bounds one update body. Real updates are a few kilobytes.
const MaxUpdateSize = 256 << 10

const UpdateContextKey contextKey = "botUpdate"

func GetUpdate(ctx context.Context) *chat.Update {
	if update, ok := ctx.Value(UpdateContextKey).(*chat.Update); ok {
		return update
	}
	return nil
}

type WebhookSecretMiddleware struct {
	secret string
}

func NewWebhookSecretMiddleware(secret string) *WebhookSecretMiddleware {
	return &WebhookSecretMiddleware{secret: secret}
}

// Handler verifies the secret header, then decodes the update into the
// request context. Oversized bodies are rejected with 413.
func (m *WebhookSecretMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.secret == "" {
			log.Warn().Msg("webhook secret verification bypassed: WEBHOOK_SECRET is not configured")
		} else {
			provided := r.Header.Get(WebhookSecretHeader)
			if provided == "" {
				log.Warn().Msg("webhook middleware: missing secret header")
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error": "Missing secret token",
				})
				return
			}
			if !util.ConstantTimeEqual(provided, m.secret) {
				log.Warn().Msg("webhook middleware: invalid secret token")
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error": "Invalid secret token",
				})
				return
			}
		}

		if r.ContentLength > MaxUpdateSize {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": "Request body too large",
			})
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, MaxUpdateSize+1))
		if err != nil {
			log.Error().Err(err).Msg("webhook middleware: failed to read body")
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "Failed to read request body",
			})
			return
		}
		if len(body) > MaxUpdateSize {
			log.Warn().Int("limit", MaxUpdateSize).Msg("webhook middleware: update body too large")
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": "Request body too large",
			})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var update chat.Update
		if err := json.Unmarshal(body, &update); err != nil {
			log.Error().Err(err).Msg("webhook middleware: failed to parse update")
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "Invalid JSON body",
			})
			return
		}

		ctx := context.WithValue(r.Context(), UpdateContextKey, &update)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
