package auth

import (
	"context"
)

// Surface is the chat front-end the orchestrator talks to.
type Surface interface {
	// RenderKeypad shows view, editing message existingID when it is non-zero,
	// and returns the id of the message now showing the keypad.
	RenderKeypad(ctx context.Context, userID int64, view KeypadView, existingID int) (int, error)
	Notify(ctx context.Context, userID int64, text string) error
	// AskContact prompts the user to share their own phone contact.
	AskContact(ctx context.Context, userID int64, text string) error
	AskPassword(ctx context.Context, userID int64, text string) error
}
