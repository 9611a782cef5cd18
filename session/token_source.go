package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/voltgrid/go-admin-session/storage"
	"golang.org/x/oauth2"
)

// refreshLeeway is how close to expiry an access token may get before
// Token refreshes it silently instead of handing it out.
const refreshLeeway = 30 * time.Second

// Token returns the current token pair, silently refreshing first when the
// access token's exp claim is within the leeway window. The claim is read
// unverified — validity is the server's call, per the optimistic
// authentication semantic — and tokens without a readable exp are handed
// out as-is.
func (m *Manager) Token(ctx context.Context) (*oauth2.Token, error) {
	accessToken, ok := m.store.Get(storage.AccessTokenKey)
	if !ok || accessToken == "" {
		return nil, NotAuthenticatedErr
	}

	expiry, known := tokenExpiry(accessToken)
	if known && !m.nowTime().Add(refreshLeeway).Before(expiry) {
		m.log.Debug().Time("expiry", expiry).Msg("access token near expiry, refreshing")
		if !m.RefreshAccessToken(ctx) {
			return nil, errors.Wrap(NotAuthenticatedErr, "silent refresh failed")
		}
		accessToken, _ = m.store.Get(storage.AccessTokenKey)
		expiry, _ = tokenExpiry(accessToken)
	}

	refreshToken, _ := m.store.Get(storage.RefreshTokenKey)
	return &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}, nil
}

// TokenSource adapts the manager to oauth2.TokenSource so downstream API
// clients can consume the session with the standard interface.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerTokenSource{ctx: ctx, manager: m}
}

type managerTokenSource struct {
	ctx     context.Context
	manager *Manager
}

var _ oauth2.TokenSource = (*managerTokenSource)(nil)

func (ts *managerTokenSource) Token() (*oauth2.Token, error) {
	return ts.manager.Token(ts.ctx)
}

// tokenExpiry reads the exp claim without verifying the signature.
func tokenExpiry(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
