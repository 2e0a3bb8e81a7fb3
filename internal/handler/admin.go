package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/sessionkeeper/internal/audit"
	apperrors "github.com/openclaw/sessionkeeper/internal/errors"
	"github.com/openclaw/sessionkeeper/internal/httputil"
	"github.com/openclaw/sessionkeeper/internal/model"
	"github.com/openclaw/sessionkeeper/internal/phone"
	"github.com/openclaw/sessionkeeper/internal/util"
)

type AccountService interface {
	List(ctx context.Context, limit, offset int) ([]model.AccountSession, int, error)
	Get(ctx context.Context, phone string) (*model.AccountSession, error)
	ExportSession(ctx context.Context, phone string) (string, error)
}

// ActiveCounter reports how many authentications are in flight.
type ActiveCounter interface {
	Active() int
}

type AdminHandler struct {
	accounts       AccountService
	active         ActiveCounter
	authMiddleware func(http.Handler) http.Handler
}

func NewAdminHandler(
	accounts AccountService,
	active ActiveCounter,
	authMiddleware func(http.Handler) http.Handler,
) *AdminHandler {
	return &AdminHandler{
		accounts:       accounts,
		active:         active,
		authMiddleware: authMiddleware,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.authMiddleware)

	r.Get("/accounts", h.ListAccounts)
	r.Get("/accounts/{phone}", h.GetAccount)
	r.Get("/accounts/{phone}/session", h.ExportSession)
	r.Get("/auth/active", h.ActiveAuthentications)

	return r
}

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// pageParams reads limit and offset from the query. Out of range or
// malformed values fall back to the first default-sized page.
func pageParams(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))

	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	accounts, total, err := h.accounts.List(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list account sessions")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":  accounts,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// phoneParam normalizes the {phone} path parameter. It writes a 400 and
// returns false when the value is not a phone number.
func phoneParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	number := phone.Normalize(chi.URLParam(r, "phone"))
	if !phone.Valid(number) {
		httputil.WriteError(w, apperrors.InvalidInput("phone", "not an E.164 number"))
		return "", false
	}
	return number, true
}

func (h *AdminHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	number, ok := phoneParam(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.Get(r.Context(), number)
	if err != nil {
		log.Error().Err(err).Str("phone", util.MaskPhone(number)).Msg("failed to get account session")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (h *AdminHandler) ExportSession(w http.ResponseWriter, r *http.Request) {
	number, ok := phoneParam(w, r)
	if !ok {
		return
	}

	session, err := h.accounts.ExportSession(r.Context(), number)
	if err != nil {
		log.Error().Err(err).Str("phone", util.MaskPhone(number)).Msg("failed to export account session")
		httputil.WriteError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:  audit.EventSessionExported,
		Phone: util.MaskPhone(number),
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"phone":   number,
		"session": session,
	})
}

func (h *AdminHandler) ActiveAuthentications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"active": h.active.Active(),
	})
}
