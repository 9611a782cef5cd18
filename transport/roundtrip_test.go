package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/voltgrid/go-admin-session/storage"
	"github.com/voltgrid/go-admin-session/transport"
)

// rewriteTransport sends every request to the test server regardless of the
// tenant host the router computed, so URL construction stays observable.
type rewriteTransport struct {
	target *url.URL
	seen   []*http.Request
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.seen = append(rt.seen, req.Clone(req.Context()))
	rewritten := req.Clone(req.Context())
	rewritten.URL.Scheme = rt.target.Scheme
	rewritten.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(rewritten)
}

func newTestRouter(t *testing.T, hostname string, store storage.Store, handler http.Handler, options ...transport.RouterOption) (*transport.Router, *rewriteTransport) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	target, err := url.Parse(server.URL)
	require.NoError(t, err)

	rewrite := &rewriteTransport{target: target}
	options = append(options, transport.WithBaseTransport(rewrite))
	router, err := transport.NewRouter(hostname, store, options...)
	require.NoError(t, err)
	return router, rewrite
}

func TestRouterAttachesBearerToken(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.NoError(t, store.Set(storage.AccessTokenKey, "access-abc"))

	var gotAuth, gotRequestID string
	router, rewrite := newTestRouter(t, "acme.localhost", store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))

	req, err := router.NewRequest(context.Background(), http.MethodGet, "/users/users/me/", nil)
	require.NoError(t, err)

	resp, err := router.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "Bearer access-abc", gotAuth)
	require.NotEmpty(t, gotRequestID)

	// The router computed the tenant-correct URL before the test transport
	// rewrote it to the local server.
	require.Len(t, rewrite.seen, 1)
	require.Equal(t, "http://acme.localhost:8000/api/users/users/me/", rewrite.seen[0].URL.String())
}

func TestRouterNoTokenNoAuthorizationHeader(t *testing.T) {
	store := storage.NewInMemoryStore()

	var gotAuth string
	hasAuth := true
	router, _ := newTestRouter(t, "localhost", store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, hasAuth = r.Header["Authorization"]
		w.WriteHeader(http.StatusOK)
	}))

	req, err := router.NewRequest(context.Background(), http.MethodGet, "/tenant/validate-domain/", nil)
	require.NoError(t, err)

	resp, err := router.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Empty(t, gotAuth)
	require.False(t, hasAuth)
}

func TestRouterUnauthorizedClearsTokensAndNavigates(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.NoError(t, store.Set(storage.AccessTokenKey, "stale-access"))
	require.NoError(t, store.Set(storage.RefreshTokenKey, "stale-refresh"))

	var navigatedTo string
	router, _ := newTestRouter(t, "admin.acme.io", store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), transport.WithNavigator(func(path string) {
		navigatedTo = path
	}))

	req, err := router.NewRequest(context.Background(), http.MethodGet, "/payments/invoices/", nil)
	require.NoError(t, err)

	resp, err := router.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, transport.LoginPath, navigatedTo)

	_, ok := store.Get(storage.AccessTokenKey)
	require.False(t, ok)
	_, ok = store.Get(storage.RefreshTokenKey)
	require.False(t, ok)
}

func TestRouterEndpointRootsPaths(t *testing.T) {
	router, err := transport.NewRouter("admin.acme.io", storage.NewInMemoryStore())
	require.NoError(t, err)

	require.Equal(t, "https://admin.acme.io/api/chargers/", router.Endpoint("/chargers/"))
	require.Equal(t, "https://admin.acme.io/api/chargers/", router.Endpoint("/api/chargers/"))
}

func TestNewRouterValidation(t *testing.T) {
	_, err := transport.NewRouter("", storage.NewInMemoryStore())
	require.Error(t, err)

	_, err = transport.NewRouter("localhost", nil)
	require.Error(t, err)
}
