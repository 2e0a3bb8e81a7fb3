// Package remote defines the capability used to authenticate against the
// third-party messaging service and an HTTP implementation that drives a
// protocol gateway through a chosen egress proxy.
package remote

import (
	"context"
	"errors"
	"net/url"
)

// Outcome is the closed set of results of a sign-in step.
type Outcome int

const (
	OutcomeAuthorized Outcome = iota
	OutcomeSecondFactorRequired
	OutcomeCodeExpired
	OutcomeCodeInvalid
	OutcomeOther
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthorized:
		return "authorized"
	case OutcomeSecondFactorRequired:
		return "second_factor_required"
	case OutcomeCodeExpired:
		return "code_expired"
	case OutcomeCodeInvalid:
		return "code_invalid"
	default:
		return "other"
	}
}

// SignInResult carries the outcome of a sign-in call. Detail is a
// human-readable reason for OutcomeOther. For password sign-in a rejected
// password is reported as OutcomeCodeInvalid.
type SignInResult struct {
	Outcome Outcome
	Detail  string
}

func Authorized() SignInResult           { return SignInResult{Outcome: OutcomeAuthorized} }
func SecondFactorRequired() SignInResult { return SignInResult{Outcome: OutcomeSecondFactorRequired} }
func CodeExpired() SignInResult          { return SignInResult{Outcome: OutcomeCodeExpired} }
func CodeInvalid() SignInResult          { return SignInResult{Outcome: OutcomeCodeInvalid} }

func Other(detail string) SignInResult {
	return SignInResult{Outcome: OutcomeOther, Detail: detail}
}

// Account is the identity the remote service reports after sign-in.
type Account struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// ErrUnavailable wraps transport-level failures talking to the remote service.
var ErrUnavailable = errors.New("remote service unavailable")

// Connector opens a connection to the remote service through egress.
type Connector interface {
	Connect(ctx context.Context, egress *url.URL) (Client, error)
}

// Client is one connected remote session. It is owned by exactly one
// in-flight authentication and must be disconnected when that ends.
type Client interface {
	RequestCode(ctx context.Context, phone string) error
	SignInWithCode(ctx context.Context, phone, code string) SignInResult
	SignInWithPassword(ctx context.Context, password string) SignInResult
	IsAuthorized(ctx context.Context) (bool, error)
	Me(ctx context.Context) (*Account, error)
	ExportSession(ctx context.Context) (string, error)
	Disconnect() error
}
