package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projpool/projpool/internal/models"
	"github.com/projpool/projpool/internal/service/auth/jwtmanager"
)

// In memory blocklist
type memBlocklist struct {
	jtis map[string]bool
	err  error
}

func (b *memBlocklist) Add(_ context.Context, token models.RevokedToken) error {
	b.jtis[token.JTI] = true
	return b.err
}

func (b *memBlocklist) Contains(_ context.Context, jti string) (bool, error) {
	return b.jtis[jti], b.err
}

func (b *memBlocklist) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, b.err
}

type countRecorder map[string]int

func (c countRecorder) AuthRejected(code string) { c[code]++ }

func bodyJSON(t *testing.T, resp jwtmanager.Response) string {
	t.Helper()
	b, err := json.Marshal(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestCallbacks_AdditionalClaims(t *testing.T) {
	c := NewCallbacks(&memBlocklist{}, nil)

	tests := []struct {
		identity string
		isAdmin  bool
	}{
		{"1", true},
		{"2", false},
		{"10", false},
		{"01", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run("identity "+tt.identity, func(t *testing.T) {
			assert.Equal(t, tt.isAdmin, c.AdditionalClaims(tt.identity).IsAdmin)
		})
	}
}

func TestCallbacks_TokenInBlocklist(t *testing.T) {
	blocklist := &memBlocklist{jtis: map[string]bool{"revoked-jti": true}}
	c := NewCallbacks(blocklist, nil)

	t.Run("present", func(t *testing.T) {
		claims := &jwtmanager.Claims{}
		claims.ID = "revoked-jti"

		found, err := c.TokenInBlocklist(t.Context(), claims)

		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("absent", func(t *testing.T) {
		claims := &jwtmanager.Claims{}
		claims.ID = "other-jti"

		found, err := c.TokenInBlocklist(t.Context(), claims)

		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("lookup error", func(t *testing.T) {
		c := NewCallbacks(&memBlocklist{err: errors.New("db is down")}, nil)

		_, err := c.TokenInBlocklist(t.Context(), &jwtmanager.Claims{})

		require.Error(t, err)
	})
}

func TestCallbacks_envelopes(t *testing.T) {
	recorder := countRecorder{}
	c := NewCallbacks(&memBlocklist{}, recorder)

	tests := []struct {
		name     string
		resp     jwtmanager.Response
		code     string
		expected string
	}{
		{
			name:     "revoked",
			resp:     c.RevokedToken(&jwtmanager.Claims{}),
			code:     "token_revoked",
			expected: `{"description": "Token has been revoked", "decsription": "Token has been revoked", "error": "token_revoked"}`,
		},
		{
			name:     "expired",
			resp:     c.ExpiredToken(&jwtmanager.Claims{}),
			code:     "token_expired",
			expected: `{"message": "Token has expired", "error": "token_expired"}`,
		},
		{
			name:     "invalid",
			resp:     c.InvalidToken(errors.New("bad signature")),
			code:     "invalid_token",
			expected: `{"message": "Signature verification failed", "error": "invalid_token"}`,
		},
		{
			name:     "missing",
			resp:     c.Unauthorized(errors.New("no header")),
			code:     "authorization_required",
			expected: `{"description": "Request does not contain access token", "error": "authorization_required"}`,
		},
		{
			name:     "fresh required",
			resp:     c.FreshRequired(&jwtmanager.Claims{}),
			code:     "fresh_token_required",
			expected: `{"description": "Fresh token required", "error": "fresh_token_required"}`,
		},
		{
			name:     "admin required",
			resp:     c.AdminRequired(&jwtmanager.Claims{}),
			code:     "admin_required",
			expected: `{"description": "Admin privilege required", "error": "admin_required"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, tt.resp.Status)
			assert.JSONEq(t, tt.expected, bodyJSON(t, tt.resp))
			assert.Equal(t, 1, recorder[tt.code], "rejection has to be counted once")
		})
	}
}
