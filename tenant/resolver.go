package tenant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/voltgrid/go-admin-session/storage"
	"github.com/voltgrid/go-admin-session/transport"
)

const validateDomainPath = "/api/tenant/validate-domain/"

// Resolver determines the active tenant from the browsing context and
// fetches its metadata once per session. Resolution must settle (success or
// failure) before any tenant-scoped request is made; until then Current
// returns nil and downstream components must hold off.
type Resolver struct {
	router   *transport.Router
	store    storage.Store
	client   *http.Client
	override string
	brander  Brander
	log      zerolog.Logger

	mu      sync.RWMutex
	current *Tenant
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithOverrideDomain forces a tenant domain, taking priority over the
// persisted domain and the hostname. This is the query-parameter override
// used to hop between tenants without changing hosts.
func WithOverrideDomain(domain string) ResolverOption {
	return func(r *Resolver) {
		r.override = domain
	}
}

// WithBrander sets the branding side effect applied after resolution.
func WithBrander(brander Brander) ResolverOption {
	return func(r *Resolver) {
		r.brander = brander
	}
}

// WithHTTPClient sets the client used for the validation call (for testing).
func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *Resolver) {
		r.client = client
	}
}

// WithResolverLogger sets the resolver's logger.
func WithResolverLogger(log zerolog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.log = log
	}
}

// NewResolver creates a Resolver routing validation calls through router
// and persisting the validated domain in store.
func NewResolver(router *transport.Router, store storage.Store, options ...ResolverOption) (*Resolver, error) {
	if router == nil {
		return nil, errors.New("[NewResolver] router is required")
	}
	if store == nil {
		return nil, errors.New("[NewResolver] store is required")
	}

	resolver := &Resolver{
		router: router,
		store:  store,
		log:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(resolver)
	}
	if resolver.client == nil {
		resolver.client = router.Client()
	}
	return resolver, nil
}

// Current returns the resolved tenant, or nil while unresolved or after a
// failed resolution. The returned value is read-only by convention.
func (r *Resolver) Current() *Tenant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Domain returns the tenant domain the resolver will validate: the
// explicit override, then the persisted domain, then the hostname.
func (r *Resolver) Domain() string {
	if r.override != "" {
		return r.override
	}
	if domain, ok := r.store.Get(storage.TenantDomainKey); ok && domain != "" {
		return domain
	}
	return r.router.Hostname()
}

// Resolve validates the tenant domain against the backend and, on success,
// persists the domain, publishes the tenant and applies branding. On
// failure the tenant becomes nil and the error is returned for the UI to
// display; the resolver never retries on its own. Calling Resolve again
// re-validates and may switch tenants if the domain changed.
func (r *Resolver) Resolve(ctx context.Context) (*Tenant, error) {
	domain := r.Domain()

	resolved, err := r.validate(ctx, domain)
	if err != nil {
		r.mu.Lock()
		r.current = nil
		r.mu.Unlock()
		r.log.Error().Err(err).Str("domain", domain).Msg("tenant resolution failed")
		return nil, err
	}

	if err := r.store.Set(storage.TenantDomainKey, domain); err != nil {
		return nil, errors.Wrap(err, "[Resolver.Resolve] persisting tenant domain")
	}

	r.mu.Lock()
	r.current = resolved
	r.mu.Unlock()

	if r.brander != nil {
		r.brander.ApplyBranding(resolved)
	}
	r.log.Info().Str("tenant", resolved.Name).Str("domain", domain).Msg("tenant resolved")
	return resolved, nil
}

// validationURL picks between the two validation targets. On a development
// host a domain other than plain localhost simulates a separate tenant
// host, so the call goes directly to http://{domain}; everywhere else the
// same-origin endpoint is used with the domain as a query parameter.
func (r *Resolver) validationURL(domain string) string {
	query := "?domain=" + url.QueryEscape(domain)
	if transport.IsDevHost(r.router.Hostname()) && domain != "localhost" {
		return "http://" + domain + validateDomainPath + query
	}
	return r.router.Endpoint(validateDomainPath) + query
}

func (r *Resolver) validate(ctx context.Context, domain string) (*Tenant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.validationURL(domain), nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Resolver.validate] http.NewRequestWithContext")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(ValidationFailedErr, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(ValidationFailedErr, "[Resolver.validate] status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "[Resolver.validate] reading response")
	}

	var verdict struct {
		IsValid bool `json:"is_valid"`
	}
	if err := json.Unmarshal(body, &verdict); err != nil {
		return nil, errors.Wrap(InvalidResponseErr, err.Error())
	}
	if !verdict.IsValid {
		return nil, errors.Wrapf(DomainNotRegisteredErr, "[Resolver.validate] %q", domain)
	}

	resolved := &Tenant{}
	if err := json.Unmarshal(body, resolved); err != nil {
		return nil, errors.Wrap(InvalidResponseErr, err.Error())
	}
	if resolved.Domain == "" {
		resolved.Domain = domain
	}
	return resolved, nil
}
