// Package storage holds the durable client-side session state: the token
// pair and the last validated tenant domain. It is the single source of
// truth for both — the transport reads the access token from here on every
// request, and the session manager writes here on login/refresh/logout.
package storage

// Well-known keys. Every component addresses the store through these;
// ad hoc keys are not used anywhere in the module.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
	TenantDomainKey = "tenant_domain"
)

// Store is a small key/value store with localStorage-like semantics:
// string keys, string values, durable for the lifetime the implementation
// promises (process for InMemoryStore, disk for FileStore).
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// ClearTokens removes both halves of the token pair. Shared by the
// transport's 401 handler and the session manager's logout path so the two
// can never disagree on what "cleared" means.
func ClearTokens(s Store) {
	_ = s.Delete(AccessTokenKey)
	_ = s.Delete(RefreshTokenKey)
}
