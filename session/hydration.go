package session

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

// HydrateUser fetches the authenticated user's profile, at most once per
// session lifetime. Preconditions, all required: an access token is
// present, the tenant is resolved, no fetch is already in flight, and no
// attempt has been made since the last full session reset. The in-flight
// and attempted guards exist to stop duplicate concurrent fetches and
// retry storms against a persistently failing profile endpoint.
//
// Fetch failures are handled internally per the session's recovery policy:
// exactly one token refresh is attempted, and if that also fails the
// session is logged out. Only precondition violations are returned.
func (m *Manager) HydrateUser(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return SessionClosedErr
	}
	if m.user != nil {
		m.mu.Unlock()
		return nil
	}
	if !m.IsAuthenticated() {
		m.mu.Unlock()
		return NotAuthenticatedErr
	}
	if m.tenants.Current() == nil {
		m.mu.Unlock()
		return TenantNotResolvedErr
	}
	if m.hydration != hydrationIdle {
		// Already fetching or already attempted; either way, not again.
		m.mu.Unlock()
		return nil
	}
	m.hydration = hydrationFetching
	m.mu.Unlock()

	user, err := m.fetchProfile(ctx)

	m.mu.Lock()
	if m.closed {
		// Torn down while the request was in flight; drop the response.
		m.mu.Unlock()
		return nil
	}
	m.hydration = hydrationAttempted
	if err == nil {
		m.user = user
		m.mu.Unlock()
		m.log.Info().Str("username", user.Username).Msg("user hydrated")
		return nil
	}
	m.mu.Unlock()

	m.log.Warn().Err(err).Msg("profile fetch failed, attempting token refresh")
	if !m.RefreshAccessToken(ctx) {
		// A failed refresh normally logs out on its own; finish the reset
		// here for the no-refresh-token case where it returns early.
		if m.IsAuthenticated() {
			m.Logout(ctx)
		}
		return nil
	}
	// Refresh succeeded; the session stays alive but the attempted guard
	// holds, so the user remains unhydrated until the next session.
	return nil
}

func (m *Manager) fetchProfile(ctx context.Context) (*User, error) {
	req, err := m.router.NewRequest(ctx, http.MethodGet, profilePath, nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(ProfileFetchErr, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(ProfileFetchErr, "[Manager.fetchProfile] status %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, errors.Wrap(ProfileFetchErr, err.Error())
	}
	return &user, nil
}
