package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/testutil"
)

const secret = "test-secret"

var user = model.User{ID: uuid.New(), Email: "ann@example.com"}

func TestVerifier(t *testing.T) {
	ctx := context.Background()
	v := NewVerifier(secret, NewMemoryRevoker())

	t.Run("round trip", func(t *testing.T) {
		raw, err := v.Issue(user, time.Hour)
		require.NoError(t, err)

		claims, err := v.Verify(ctx, raw)
		require.NoError(t, err)
		got, err := claims.User()
		require.NoError(t, err)
		assert.Equal(t, user, got)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("expired", func(t *testing.T) {
		raw, err := v.Issue(user, -time.Minute)
		require.NoError(t, err)
		_, err = v.Verify(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		raw, err := NewVerifier("other", nil).Issue(user, time.Hour)
		require.NoError(t, err)
		_, err = v.Verify(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unexpected algorithm", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		_, err = v.Verify(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("subject must be a user id", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		_, err = v.Verify(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("sign out revokes", func(t *testing.T) {
		raw, err := v.Issue(user, time.Hour)
		require.NoError(t, err)
		claims, err := v.Verify(ctx, raw)
		require.NoError(t, err)

		require.NoError(t, v.SignOut(ctx, claims))
		_, err = v.Verify(ctx, raw)
		assert.ErrorIs(t, err, ErrRevoked)

		other, err := v.Issue(user, time.Hour)
		require.NoError(t, err)
		_, err = v.Verify(ctx, other)
		assert.NoError(t, err, "other sessions stay valid")
	})
}

func TestMemoryRevoker_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryRevoker()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Revoke(ctx, "a", now.Add(time.Minute)))
	revoked, _ := m.Revoked(ctx, "a")
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = m.Revoked(ctx, "a")
	assert.False(t, revoked)

	require.NoError(t, m.Revoke(ctx, "b", now.Add(time.Minute)))
	assert.Len(t, m.ids, 1, "expired ids are pruned")
}

func TestRedisRevoker(t *testing.T) {
	rdb, cleanup := testutil.SetupRedis(t)
	defer cleanup()
	ctx := context.Background()

	r := NewRedisRevoker(rdb)
	require.NoError(t, r.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	require.NoError(t, r.Revoke(ctx, "jti-2", time.Now().Add(-time.Hour)))

	revoked, err := r.Revoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = r.Revoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked, "already expired tokens are not stored")

	ttl, err := rdb.TTL(ctx, revokedKeyPrefix+"jti-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(secret, NewMemoryRevoker())
	var seen model.User
	h := Middleware(v, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		_, ok := ClaimsFromContext(r.Context())
		assert.True(t, ok)
		w.WriteHeader(http.StatusNoContent)
	}))

	valid, err := v.Issue(user, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
	assert.Equal(t, user, seen)
}
