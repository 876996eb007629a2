// Package testutil provides shared helpers for HTTP and token tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestServer creates a test HTTP server - handler should be set up by the test
func TestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
	})

	return server
}

// UnreachableURL returns the URL of a server that has already been shut
// down, so connecting to it fails.
func UnreachableURL(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	return url + "/.well-known/jwks.json"
}

// BearerHeader returns a header map carrying token as a bearer credential.
func BearerHeader(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}
