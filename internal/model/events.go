package model

import "time"

const EventSessionStored = "session_stored"

// SessionStoredEvent is published after an account session has been upserted.
type SessionStoredEvent struct {
	Phone      string    `json:"phone"`
	ProxyIndex int       `json:"proxyIndex"`
	UserID     int64     `json:"userId"`
	Has2FA     bool      `json:"has2fa"`
	StoredAt   time.Time `json:"storedAt"`
}
