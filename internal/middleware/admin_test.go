package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminAuthMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-token"), bcrypt.MinCost)
	require.NoError(t, err)

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		hash   string
		header string
		want   int
	}{
		{name: "disabled without hash", hash: "", header: "Bearer admin-token", want: http.StatusUnauthorized},
		{name: "missing token", hash: string(hash), header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", hash: string(hash), header: "Basic admin-token", want: http.StatusUnauthorized},
		{name: "wrong token", hash: string(hash), header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid token", hash: string(hash), header: "Bearer admin-token", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAdminAuthMiddleware(tt.hash).Handler(okHandler)

			req := httptest.NewRequest("GET", "/v1/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
