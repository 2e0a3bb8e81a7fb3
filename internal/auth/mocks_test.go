package auth

import (
	"context"
	"net/url"

	"github.com/stretchr/testify/mock"

	"github.com/openclaw/sessionkeeper/internal/model"
	"github.com/openclaw/sessionkeeper/internal/proxy"
	"github.com/openclaw/sessionkeeper/internal/remote"
)

type mockSurface struct {
	mock.Mock
}

func (m *mockSurface) RenderKeypad(ctx context.Context, userID int64, view KeypadView, existingID int) (int, error) {
	args := m.Called(ctx, userID, view, existingID)
	return args.Int(0), args.Error(1)
}

func (m *mockSurface) Notify(ctx context.Context, userID int64, text string) error {
	args := m.Called(ctx, userID, text)
	return args.Error(0)
}

func (m *mockSurface) AskContact(ctx context.Context, userID int64, text string) error {
	args := m.Called(ctx, userID, text)
	return args.Error(0)
}

func (m *mockSurface) AskPassword(ctx context.Context, userID int64, text string) error {
	args := m.Called(ctx, userID, text)
	return args.Error(0)
}

// lastView returns the view passed to the most recent RenderKeypad call.
func (m *mockSurface) lastView() KeypadView {
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == "RenderKeypad" {
			return m.Calls[i].Arguments.Get(2).(KeypadView)
		}
	}
	return KeypadView{}
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, phone string) proxy.Assignment {
	args := m.Called(ctx, phone)
	return args.Get(0).(proxy.Assignment)
}

type mockConnector struct {
	mock.Mock
}

func (m *mockConnector) Connect(ctx context.Context, egress *url.URL) (remote.Client, error) {
	args := m.Called(ctx, egress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(remote.Client), args.Error(1)
}

type mockClient struct {
	mock.Mock
}

func (m *mockClient) RequestCode(ctx context.Context, phone string) error {
	args := m.Called(ctx, phone)
	return args.Error(0)
}

func (m *mockClient) SignInWithCode(ctx context.Context, phone, code string) remote.SignInResult {
	args := m.Called(ctx, phone, code)
	return args.Get(0).(remote.SignInResult)
}

func (m *mockClient) SignInWithPassword(ctx context.Context, password string) remote.SignInResult {
	args := m.Called(ctx, password)
	return args.Get(0).(remote.SignInResult)
}

func (m *mockClient) IsAuthorized(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockClient) Me(ctx context.Context) (*remote.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.Account), args.Error(1)
}

func (m *mockClient) ExportSession(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockClient) Disconnect() error {
	args := m.Called()
	return args.Error(0)
}

type mockPersister struct {
	mock.Mock
}

func (m *mockPersister) Persist(ctx context.Context, rec Record) (*model.AccountSession, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccountSession), args.Error(1)
}

type mockAccountSessionRepo struct {
	mock.Mock
}

func (m *mockAccountSessionRepo) FindByPhone(ctx context.Context, phone string) (*model.AccountSession, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccountSession), args.Error(1)
}

func (m *mockAccountSessionRepo) FindAll(ctx context.Context, limit, offset int) ([]model.AccountSession, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AccountSession), args.Error(1)
}

func (m *mockAccountSessionRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockAccountSessionRepo) Upsert(ctx context.Context, params model.UpsertAccountSessionParams) (*model.AccountSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccountSession), args.Error(1)
}

type mockBackup struct {
	mock.Mock
}

func (m *mockBackup) Write(phone, session string) error {
	args := m.Called(phone, session)
	return args.Error(0)
}

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishSessionStored(ctx context.Context, event model.SessionStoredEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
