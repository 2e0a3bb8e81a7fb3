package service

import (
	"context"
	"errors"

	"github.com/openclaw/sessionkeeper/internal/backup"
	apperrors "github.com/openclaw/sessionkeeper/internal/errors"
	"github.com/openclaw/sessionkeeper/internal/model"
	"github.com/openclaw/sessionkeeper/internal/repository"
	"github.com/openclaw/sessionkeeper/internal/util"
)

type BackupReader interface {
	Read(phone string) (*backup.Record, error)
}

// AccountService serves stored account sessions to the admin API.
type AccountService struct {
	repo          repository.AccountSessionRepository
	backup        BackupReader
	encryptionKey string
}

func NewAccountService(repo repository.AccountSessionRepository, backups BackupReader, encryptionKey string) *AccountService {
	return &AccountService{
		repo:          repo,
		backup:        backups,
		encryptionKey: encryptionKey,
	}
}

func (s *AccountService) List(ctx context.Context, limit, offset int) ([]model.AccountSession, int, error) {
	sessions, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Database(err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.Database(err)
	}
	if sessions == nil {
		sessions = []model.AccountSession{}
	}
	return sessions, total, nil
}

func (s *AccountService) Get(ctx context.Context, phone string) (*model.AccountSession, error) {
	session, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Account session")
	}
	return session, nil
}

// ExportSession returns the plaintext session blob for phone. The database
// row wins; the backup file is only consulted when there is no row.
func (s *AccountService) ExportSession(ctx context.Context, phone string) (string, error) {
	session, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return "", apperrors.Database(err)
	}

	var blob string
	if session != nil {
		blob = session.SessionBlob
	} else {
		record, err := s.backup.Read(phone)
		switch {
		case errors.Is(err, backup.ErrNotFound):
			return "", apperrors.NotFound("Account session")
		case errors.Is(err, backup.ErrChecksum):
			return "", apperrors.SessionCorrupt(err)
		case err != nil:
			return "", apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to read session backup", err)
		}
		blob = record.Session
	}

	if s.encryptionKey == "" {
		return blob, nil
	}
	plain, err := util.OpenSession(s.encryptionKey, phone, blob)
	if err != nil {
		return "", apperrors.SessionCorrupt(err)
	}
	return plain, nil
}
