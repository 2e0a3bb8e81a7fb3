package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/sessionkeeper/internal/auth"
)

const (
	loginButtonText   = "Log in"
	contactButtonText = "Share phone number"
)

// Surface renders the authentication flow into a private bot chat, where the
// chat id equals the user id.
type Surface struct {
	client *Client
}

func NewSurface(client *Client) *Surface {
	return &Surface{client: client}
}

var _ auth.Surface = (*Surface)(nil)

func (s *Surface) RenderKeypad(ctx context.Context, userID int64, view auth.KeypadView, existingID int) (int, error) {
	markup := inlineKeyboard(view.Rows)

	if existingID != 0 {
		err := s.client.EditMessageText(ctx, EditMessageTextParams{
			ChatID:      userID,
			MessageID:   existingID,
			Text:        view.Text,
			ReplyMarkup: markup,
		})
		if err == nil {
			return existingID, nil
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			return 0, fmt.Errorf("edit keypad: %w", err)
		}
		log.Warn().Err(err).Int64("userId", userID).Msg("keypad edit rejected, sending a new one")
	}

	msg, err := s.client.SendMessage(ctx, SendMessageParams{
		ChatID:      userID,
		Text:        view.Text,
		ReplyMarkup: markup,
	})
	if err != nil {
		return 0, fmt.Errorf("send keypad: %w", err)
	}
	return msg.MessageID, nil
}

func (s *Surface) Notify(ctx context.Context, userID int64, text string) error {
	_, err := s.client.SendMessage(ctx, SendMessageParams{
		ChatID:      userID,
		Text:        text,
		ReplyMarkup: &ReplyKeyboardRemove{RemoveKeyboard: true},
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

func (s *Surface) AskContact(ctx context.Context, userID int64, text string) error {
	_, err := s.client.SendMessage(ctx, SendMessageParams{
		ChatID: userID,
		Text:   text,
		ReplyMarkup: &ReplyKeyboardMarkup{
			Keyboard:        [][]KeyboardButton{{{Text: contactButtonText, RequestContact: true}}},
			ResizeKeyboard:  true,
			OneTimeKeyboard: true,
		},
	})
	if err != nil {
		return fmt.Errorf("send contact request: %w", err)
	}
	return nil
}

func (s *Surface) AskPassword(ctx context.Context, userID int64, text string) error {
	_, err := s.client.SendMessage(ctx, SendMessageParams{
		ChatID:      userID,
		Text:        text,
		ReplyMarkup: &ForceReply{ForceReply: true, InputFieldPlaceholder: "Password"},
	})
	if err != nil {
		return fmt.Errorf("send password request: %w", err)
	}
	return nil
}

// Greet sends the welcome message with a button that starts a login.
func (s *Surface) Greet(ctx context.Context, userID int64, text string) error {
	_, err := s.client.SendMessage(ctx, SendMessageParams{
		ChatID: userID,
		Text:   text,
		ReplyMarkup: &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{{{Text: loginButtonText, CallbackData: auth.ActionStart}}},
		},
	})
	if err != nil {
		return fmt.Errorf("send greeting: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a button press, showing notice when non-empty.
func (s *Surface) AnswerCallback(ctx context.Context, callbackID, notice string) error {
	return s.client.AnswerCallbackQuery(ctx, AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            notice,
	})
}

// Forget deletes a message from the chat, used for messages carrying secrets.
func (s *Surface) Forget(ctx context.Context, chatID int64, messageID int) error {
	return s.client.DeleteMessage(ctx, DeleteMessageParams{ChatID: chatID, MessageID: messageID})
}

func inlineKeyboard(rows [][]auth.Key) *InlineKeyboardMarkup {
	keyboard := make([][]InlineKeyboardButton, len(rows))
	for i, row := range rows {
		buttons := make([]InlineKeyboardButton, len(row))
		for j, key := range row {
			buttons[j] = InlineKeyboardButton{Text: key.Label, CallbackData: key.Action}
		}
		keyboard[i] = buttons
	}
	return &InlineKeyboardMarkup{InlineKeyboard: keyboard}
}
