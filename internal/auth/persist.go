package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/sessionkeeper/internal/audit"
	"github.com/openclaw/sessionkeeper/internal/model"
	"github.com/openclaw/sessionkeeper/internal/remote"
	"github.com/openclaw/sessionkeeper/internal/repository"
	"github.com/openclaw/sessionkeeper/internal/util"
)

// Record is everything known about a freshly authorized account.
type Record struct {
	Phone           string
	SessionBlob     string
	ProxyIndex      int
	// KeepStoredProxy leaves an existing row's proxy index in place.
	KeepStoredProxy bool
	UserID          int64
	AttemptID       string
	Account         *remote.Account
	Has2FA          bool
}

type BackupWriter interface {
	Write(phone, session string) error
}

type EventPublisher interface {
	PublishSessionStored(ctx context.Context, event model.SessionStoredEvent) error
}

// Persister writes an authorized session to the database and then, best
// effort, to the backup directory and the session event channel.
type Persister struct {
	repo          repository.AccountSessionRepository
	backup        BackupWriter
	events        EventPublisher
	encryptionKey string
	now           func() time.Time
}

// NewPersister builds a Persister. An empty encryptionKey stores blobs as is.
func NewPersister(repo repository.AccountSessionRepository, backup BackupWriter, events EventPublisher, encryptionKey string) *Persister {
	return &Persister{
		repo:          repo,
		backup:        backup,
		events:        events,
		encryptionKey: encryptionKey,
		now:           time.Now,
	}
}

// Persist upserts rec keyed by phone. Only the database write can fail the
// call; repeating it with the same record leaves a single row.
func (p *Persister) Persist(ctx context.Context, rec Record) (*model.AccountSession, error) {
	blob := rec.SessionBlob
	if p.encryptionKey != "" {
		sealed, err := util.SealSession(p.encryptionKey, rec.Phone, blob)
		if err != nil {
			return nil, fmt.Errorf("seal session: %w", err)
		}
		blob = sealed
	}

	params := model.UpsertAccountSessionParams{
		Phone:          rec.Phone,
		SessionBlob:    blob,
		ProxyIndex:     rec.ProxyIndex,
		KeepProxyIndex: rec.KeepStoredProxy,
		UserID:         rec.UserID,
		Has2FA:         rec.Has2FA,
		AuthDate:       p.now().UTC(),
	}
	if acc := rec.Account; acc != nil {
		params.AccountID = &acc.ID
		params.Username = optional(acc.Username)
		params.FirstName = optional(acc.FirstName)
		params.LastName = optional(acc.LastName)
	}

	stored, err := p.repo.Upsert(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("upsert account session: %w", err)
	}

	if err := p.backup.Write(rec.Phone, blob); err != nil {
		log.Warn().Err(err).
			Str("phone", util.MaskPhone(rec.Phone)).
			Msg("failed to write session backup")
	}

	if p.events != nil {
		event := model.SessionStoredEvent{
			Phone:      rec.Phone,
			ProxyIndex: stored.ProxyIndex,
			UserID:     rec.UserID,
			Has2FA:     rec.Has2FA,
			StoredAt:   stored.UpdatedAt,
		}
		if err := p.events.PublishSessionStored(ctx, event); err != nil {
			log.Warn().Err(err).
				Str("phone", util.MaskPhone(rec.Phone)).
				Msg("failed to publish session stored event")
		}
	}

	audit.Log(ctx, audit.Event{
		Type:      audit.EventSessionStored,
		UserID:    strconv.FormatInt(rec.UserID, 10),
		AttemptID: rec.AttemptID,
		Phone:     util.MaskPhone(rec.Phone),
		Details: map[string]interface{}{
			"proxyIndex": stored.ProxyIndex,
			"has2fa":     rec.Has2FA,
			"encrypted":  p.encryptionKey != "",
		},
	})

	return stored, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
