package model

import (
	"time"
)

// AccountSession is a durable, reusable credential for one remote account,
// keyed by phone number. At most one row exists per phone.
type AccountSession struct {
	Phone       string    `db:"phone" json:"phone"`
	SessionBlob string    `db:"session_blob" json:"-"`
	ProxyIndex  int       `db:"proxy_index" json:"proxyIndex"`
	UserID      int64     `db:"user_id" json:"userId"`
	AccountID   *int64    `db:"account_id" json:"accountId,omitempty"`
	Username    *string   `db:"username" json:"username,omitempty"`
	FirstName   *string   `db:"first_name" json:"firstName,omitempty"`
	LastName    *string   `db:"last_name" json:"lastName,omitempty"`
	Has2FA      bool      `db:"has_2fa" json:"has2fa"`
	AuthDate    time.Time `db:"auth_date" json:"authDate"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type UpsertAccountSessionParams struct {
	Phone          string
	SessionBlob    string
	ProxyIndex     int
	// KeepProxyIndex keeps the proxy index of an existing row; ProxyIndex is
	// then only used for a new one.
	KeepProxyIndex bool
	UserID         int64
	AccountID      *int64
	Username       *string
	FirstName      *string
	LastName       *string
	Has2FA         bool
	AuthDate       time.Time
}
