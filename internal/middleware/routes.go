package middleware

import (
	"net/http"

	"github.com/simpleg-eu/cp-core/internal/auth"
)

// RouteGroup represents a group of routes with common middleware
type RouteGroup struct {
	mux   *http.ServeMux
	chain *Chain
}

// NewRouteGroup creates a new route group with optional middleware
func NewRouteGroup(mux *http.ServeMux, middlewares ...Middleware) *RouteGroup {
	return &RouteGroup{
		mux:   mux,
		chain: NewChain(middlewares...),
	}
}

// Handle registers a handler with the group's middleware stack
func (rg *RouteGroup) Handle(pattern string, handler http.Handler) {
	rg.mux.Handle(pattern, rg.chain.Then(handler))
}

// HandleFunc registers a handler function with the group's middleware stack
func (rg *RouteGroup) HandleFunc(pattern string, handlerFunc http.HandlerFunc) {
	rg.mux.Handle(pattern, rg.chain.ThenFunc(handlerFunc))
}

// Group creates a sub-group with additional middleware
func (rg *RouteGroup) Group(middlewares ...Middleware) *RouteGroup {
	return &RouteGroup{
		mux:   rg.mux,
		chain: rg.chain.Append(middlewares...),
	}
}

// PublicGroup creates a route group for routes that need no credential
func PublicGroup(mux *http.ServeMux) *RouteGroup {
	return NewRouteGroup(mux)
}

// ProtectedGroup creates a route group whose routes require a valid bearer token
func ProtectedGroup(mux *http.ServeMux, gate auth.Authorizer) *RouteGroup {
	return NewRouteGroup(mux, Authenticate(gate), RequireToken)
}
