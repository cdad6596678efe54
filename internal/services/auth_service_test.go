package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTAuthenticator(t *testing.T) {
	secret := "local-secret"
	auth := NewJWTAuthenticator(secret)
	ctx := context.Background()

	token, err := SignAccessToken(secret, "user-1", "owner@example.com", time.Hour)
	require.NoError(t, err)

	principal, err := auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", principal.ID)
	assert.Equal(t, "owner@example.com", principal.Email)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := SignAccessToken("other", "user-1", "", time.Hour)
		require.NoError(t, err)
		_, err = auth.Authenticate(ctx, other)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		expired, err := SignAccessToken(secret, "user-1", "", -time.Minute)
		require.NoError(t, err)
		_, err = auth.Authenticate(ctx, expired)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("missing subject", func(t *testing.T) {
		noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "x@example.com"}).SignedString([]byte(secret))
		require.NoError(t, err)
		_, err = auth.Authenticate(ctx, noSub)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "user-1"}).SignedString([]byte(secret))
		require.NoError(t, err)
		_, err = auth.Authenticate(ctx, hs512)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := auth.Authenticate(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, ErrUnauthorized)
		_, err = auth.Authenticate(ctx, "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestRemoteAuthenticator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-9","email":"nine@example.com","aud":"authenticated"}`))
	}))
	defer srv.Close()

	auth := NewRemoteAuthenticator(srv.URL+"/", "service-key")
	ctx := context.Background()

	principal, err := auth.Authenticate(ctx, "good-token")
	require.NoError(t, err)
	assert.Equal(t, &Principal{ID: "user-9", Email: "nine@example.com"}, principal)

	_, err = auth.Authenticate(ctx, "bad-token")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = auth.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer   abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken("Bearer"))
	assert.Empty(t, BearerToken(""))
}
