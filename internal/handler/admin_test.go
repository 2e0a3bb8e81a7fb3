package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/openclaw/sessionkeeper/internal/errors"
	"github.com/openclaw/sessionkeeper/internal/model"
)

type mockAccountService struct {
	mock.Mock
}

func (m *mockAccountService) List(ctx context.Context, limit, offset int) ([]model.AccountSession, int, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.AccountSession), args.Int(1), args.Error(2)
}

func (m *mockAccountService) Get(ctx context.Context, phone string) (*model.AccountSession, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccountSession), args.Error(1)
}

func (m *mockAccountService) ExportSession(ctx context.Context, phone string) (string, error) {
	args := m.Called(ctx, phone)
	return args.String(0), args.Error(1)
}

type fixedActive int

func (f fixedActive) Active() int { return int(f) }

func passThrough(next http.Handler) http.Handler { return next }

func newAdminRouter(svc *mockAccountService, active int) http.Handler {
	r := chi.NewRouter()
	r.Mount("/v1", NewAdminHandler(svc, fixedActive(active), passThrough).Routes())
	return r
}

func TestAdminHandler_ListAccounts(t *testing.T) {
	svc := new(mockAccountService)
	svc.On("List", mock.Anything, 10, 20).Return([]model.AccountSession{
		{Phone: "+15551234567", SessionBlob: "secret-blob", ProxyIndex: 1},
	}, 21, nil)

	rec := httptest.NewRecorder()
	newAdminRouter(svc, 0).ServeHTTP(rec, httptest.NewRequest("GET", "/v1/accounts?limit=10&offset=20", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-blob")

	var body struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
		Limit int              `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 21, body.Total)
	assert.Equal(t, 10, body.Limit)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "+15551234567", body.Items[0]["phone"])
}

func TestAdminHandler_GetAccount(t *testing.T) {
	t.Run("normalizes phone from path", func(t *testing.T) {
		svc := new(mockAccountService)
		svc.On("Get", mock.Anything, "+15551234567").Return(&model.AccountSession{Phone: "+15551234567", ProxyIndex: 3}, nil)

		rec := httptest.NewRecorder()
		newAdminRouter(svc, 0).ServeHTTP(rec, httptest.NewRequest("GET", "/v1/accounts/15551234567", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"proxyIndex":3`)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(mockAccountService)
		svc.On("Get", mock.Anything, "+15550000000").Return(nil, apperrors.NotFound("Account session"))

		rec := httptest.NewRecorder()
		newAdminRouter(svc, 0).ServeHTTP(rec, httptest.NewRequest("GET", "/v1/accounts/+15550000000", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "NOT_FOUND")
	})

	t.Run("rejects a path that is not a phone number", func(t *testing.T) {
		svc := new(mockAccountService)

		rec := httptest.NewRecorder()
		newAdminRouter(svc, 0).ServeHTTP(rec, httptest.NewRequest("GET", "/v1/accounts/admin", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
		svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestAdminHandler_ExportSession(t *testing.T) {
	t.Run("returns blob", func(t *testing.T) {
		svc := new(mockAccountService)
		svc.On("ExportSession", mock.Anything, "+15551234567").Return("session-string", nil)

		rec := httptest.NewRecorder()
		newAdminRouter(svc, 0).ServeHTTP(rec, httptest.NewRequest("GET", "/v1/accounts/15551234567/session", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "session-string")
	})

	t.Run("corrupt session", func(t *testing.T) {
		svc := new(mockAccountService)
		svc.On("ExportSession", mock.Anything, "+15551234567").Return("", apperrors.SessionCorrupt(assert.AnError))

		rec := httptest.NewRecorder()
		newAdminRouter(svc, 0).ServeHTTP(rec, httptest.NewRequest("GET", "/v1/accounts/15551234567/session", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestAdminHandler_ActiveAuthentications(t *testing.T) {
	rec := httptest.NewRecorder()
	newAdminRouter(new(mockAccountService), 3).ServeHTTP(rec, httptest.NewRequest("GET", "/v1/auth/active", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"active":3}`, rec.Body.String())
}
