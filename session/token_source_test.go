package session_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/voltgrid/go-admin-session/session"
	"github.com/voltgrid/go-admin-session/storage"
)

func signedToken(t *testing.T, expiry time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": expiry.Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

func TestTokenFreshAccessTokenPassesThrough(t *testing.T) {
	f := newFixture(t)
	expiry := time.Now().Add(time.Hour)
	access := signedToken(t, expiry)
	f.setTokens(t, access, "refresh-1")

	token, err := f.manager.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, access, token.AccessToken)
	require.Equal(t, "refresh-1", token.RefreshToken)
	require.Equal(t, "Bearer", token.TokenType)
	require.WithinDuration(t, expiry, token.Expiry, time.Second)
	require.Zero(t, f.count(refreshEndpoint))
}

func TestTokenSilentRefreshNearExpiry(t *testing.T) {
	f := newFixture(t)
	f.setTokens(t, signedToken(t, time.Now().Add(10*time.Second)), "refresh-1")

	fresh := signedToken(t, time.Now().Add(time.Hour))
	f.mux.HandleFunc(refreshEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access":"` + fresh + `"}`))
	})

	token, err := f.manager.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, fresh, token.AccessToken)
	require.Equal(t, 1, f.count(refreshEndpoint))

	persisted, _ := f.store.Get(storage.AccessTokenKey)
	require.Equal(t, fresh, persisted)
}

func TestTokenSilentRefreshFailureReportsAnonymous(t *testing.T) {
	f := newFixture(t)
	f.setTokens(t, signedToken(t, time.Now().Add(-time.Minute)), "refresh-1")
	f.mux.HandleFunc(refreshEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	f.mux.HandleFunc(logoutEndpoint, func(w http.ResponseWriter, r *http.Request) {})

	_, err := f.manager.Token(context.Background())
	require.ErrorIs(t, err, session.NotAuthenticatedErr)
	require.False(t, f.manager.IsAuthenticated())
}

func TestTokenWithoutAccessToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Token(context.Background())
	require.ErrorIs(t, err, session.NotAuthenticatedErr)
}

func TestTokenOpaqueAccessTokenPassesThrough(t *testing.T) {
	f := newFixture(t)
	f.setTokens(t, "opaque-token", "refresh-1")

	token, err := f.manager.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "opaque-token", token.AccessToken)
	require.True(t, token.Expiry.IsZero())
	require.Zero(t, f.count(refreshEndpoint))
}

func TestTokenSourceAdapter(t *testing.T) {
	f := newFixture(t)
	access := signedToken(t, time.Now().Add(time.Hour))
	f.setTokens(t, access, "refresh-1")

	source := f.manager.TokenSource(context.Background())
	token, err := source.Token()
	require.NoError(t, err)
	require.Equal(t, access, token.AccessToken)
}
