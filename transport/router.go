// Package transport routes every outgoing API call to the right tenant
// backend. It owns the base-URL rules (dev port substitution, protocol
// choice), roots request paths under /api, attaches the bearer token, and
// reacts to 401 responses globally.
package transport

import "strings"

// devAPIPort is the port the backend listens on in local development,
// appended whenever the hostname is localhost or a *.localhost subdomain
// simulating a tenant host.
const devAPIPort = "8000"

// LoginPath is where the navigator is sent after an unauthorized response.
const LoginPath = "/login"

// BaseURL computes the absolute API base for a hostname.
//
// localhost and *.localhost are development hosts: plain http with the dev
// API port appended, so acme.localhost keeps identifying the acme tenant
// while the request still lands on the local backend. Any other hostname is
// production: https with no port, the tenant resolved implicitly by DNS.
func BaseURL(hostname string) string {
	if IsDevHost(hostname) {
		return "http://" + hostname + ":" + devAPIPort
	}
	return "https://" + hostname
}

// IsDevHost reports whether hostname is a local-development host.
func IsDevHost(hostname string) bool {
	return hostname == "localhost" || strings.HasSuffix(hostname, ".localhost")
}

// NormalizeAPIPath roots a caller-supplied path at /api. Paths already
// rooted there pass through unchanged.
func NormalizeAPIPath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path == "/api" || strings.HasPrefix(path, "/api/") {
		return path
	}
	return "/api" + path
}
