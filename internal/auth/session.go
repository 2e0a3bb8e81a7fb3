// Package auth drives a chat user through signing a remote messaging account
// in and hands the resulting session to persistence.
package auth

import (
	"time"

	"github.com/openclaw/sessionkeeper/internal/proxy"
	"github.com/openclaw/sessionkeeper/internal/remote"
)

type Phase string

const (
	PhaseAwaitingContact  Phase = "awaiting_contact"
	PhaseAwaitingCode     Phase = "awaiting_code"
	PhaseAwaitingPassword Phase = "awaiting_2fa"
)

// Session is the in-flight authentication state of one chat user. It is only
// read or written while the owning Lease is held.
type Session struct {
	AttemptID string
	Phase     Phase

	Phone  string
	Region string
	Egress proxy.Assignment
	Client remote.Client

	Code      string
	SurfaceID int

	Has2FA           bool
	PasswordAttempts int

	StartedAt time.Time
}
