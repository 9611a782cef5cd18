package transport

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/voltgrid/go-admin-session/storage"
)

// Navigator is invoked after the global 401 handler has cleared the stored
// tokens, with the path the user should be sent to. A browser-embedded
// consumer redirects; a CLI just reports.
type Navigator func(path string)

// Router builds tenant-correct requests and implements http.RoundTripper.
// Every request passing through it gets the current access token from the
// store; any 401 response clears both tokens and fires the navigator.
type Router struct {
	hostname string
	store    storage.Store
	navigate Navigator
	base     http.RoundTripper
	log      zerolog.Logger
}

var _ http.RoundTripper = (*Router)(nil)

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithNavigator sets the handler invoked after a 401 response.
func WithNavigator(navigate Navigator) RouterOption {
	return func(r *Router) {
		r.navigate = navigate
	}
}

// WithBaseTransport sets the underlying RoundTripper (for testing).
func WithBaseTransport(rt http.RoundTripper) RouterOption {
	return func(r *Router) {
		r.base = rt
	}
}

// WithRouterLogger sets the router's logger.
func WithRouterLogger(log zerolog.Logger) RouterOption {
	return func(r *Router) {
		r.log = log
	}
}

// NewRouter creates a Router for the given browsing hostname. The store is
// read on every request for the current access token.
func NewRouter(hostname string, store storage.Store, options ...RouterOption) (*Router, error) {
	if hostname == "" {
		return nil, errors.New("[NewRouter] hostname is required")
	}
	if store == nil {
		return nil, errors.New("[NewRouter] store is required")
	}

	router := &Router{
		hostname: hostname,
		store:    store,
		base:     http.DefaultTransport,
		log:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(router)
	}
	return router, nil
}

// BaseURL returns the API base for the router's hostname.
func (r *Router) BaseURL() string {
	return BaseURL(r.hostname)
}

// Hostname returns the browsing hostname the router was created for.
func (r *Router) Hostname() string {
	return r.hostname
}

// Endpoint returns the absolute URL for an API path, rooting it under /api
// when the caller did not.
func (r *Router) Endpoint(path string) string {
	return r.BaseURL() + NormalizeAPIPath(path)
}

// NewRequest builds a request against the tenant-correct base URL with JSON
// content negotiation and a correlation ID. The bearer token is attached
// later, at send time, so a token refreshed between build and send is still
// picked up.
func (r *Router) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.Endpoint(path), body)
	if err != nil {
		return nil, errors.Wrap(err, "[Router.NewRequest] http.NewRequestWithContext")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.New().String())
	return req, nil
}

// Client returns an http.Client that sends everything through the router.
// No client-level timeout is applied; cancellation is the caller's context.
func (r *Router) Client() *http.Client {
	return &http.Client{Transport: r}
}

// RoundTrip attaches the current access token and intercepts 401 responses:
// stored tokens are cleared and the navigator is sent to the login page.
// This is a last-resort handler; it never attempts a refresh itself.
func (r *Router) RoundTrip(req *http.Request) (*http.Response, error) {
	outgoing := req.Clone(req.Context())
	if token, ok := r.store.Get(storage.AccessTokenKey); ok && token != "" {
		outgoing.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := r.base.RoundTrip(outgoing)
	RequestDuration.WithLabelValues(req.Method).Observe(time.Since(started).Seconds())
	if err != nil {
		RequestsTotal.WithLabelValues(req.Method, "error").Inc()
		return nil, err
	}
	RequestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusUnauthorized {
		UnauthorizedTotal.Inc()
		r.log.Warn().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Msg("unauthorized response, clearing session")
		storage.ClearTokens(r.store)
		if r.navigate != nil {
			r.navigate(LoginPath)
		}
	}
	return resp, nil
}
