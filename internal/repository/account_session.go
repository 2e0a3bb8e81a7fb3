package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/sessionkeeper/internal/model"
)

type AccountSessionRepository interface {
	FindByPhone(ctx context.Context, phone string) (*model.AccountSession, error)
	FindAll(ctx context.Context, limit, offset int) ([]model.AccountSession, error)
	Count(ctx context.Context) (int, error)
	// Upsert inserts or replaces the session stored for params.Phone.
	Upsert(ctx context.Context, params model.UpsertAccountSessionParams) (*model.AccountSession, error)
}

// sqlxDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sqlxDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type accountSessionRepo struct {
	db sqlxDB
}

func NewAccountSessionRepository(db *sqlx.DB) AccountSessionRepository {
	return &accountSessionRepo{db: db}
}

func (r *accountSessionRepo) FindByPhone(ctx context.Context, phone string) (*model.AccountSession, error) {
	var session model.AccountSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM account_sessions WHERE phone = $1
	`, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *accountSessionRepo) FindAll(ctx context.Context, limit, offset int) ([]model.AccountSession, error) {
	var sessions []model.AccountSession
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM account_sessions
		ORDER BY auth_date DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *accountSessionRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM account_sessions`)
	return count, err
}

func (r *accountSessionRepo) Upsert(ctx context.Context, params model.UpsertAccountSessionParams) (*model.AccountSession, error) {
	var session model.AccountSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO account_sessions (
			phone, session_blob, proxy_index, user_id, account_id,
			username, first_name, last_name, has_2fa, auth_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (phone) DO UPDATE SET
			session_blob = EXCLUDED.session_blob,
			proxy_index = CASE WHEN $11 THEN account_sessions.proxy_index ELSE EXCLUDED.proxy_index END,
			user_id = EXCLUDED.user_id,
			account_id = EXCLUDED.account_id,
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			has_2fa = EXCLUDED.has_2fa,
			auth_date = EXCLUDED.auth_date,
			updated_at = NOW()
		RETURNING *
	`, params.Phone, params.SessionBlob, params.ProxyIndex, params.UserID, params.AccountID,
		params.Username, params.FirstName, params.LastName, params.Has2FA, params.AuthDate,
		params.KeepProxyIndex)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
