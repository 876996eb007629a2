// Package svrlib provides common server routing utilities
package svrlib

import (
	"net/http"

	"github.com/simpleg-eu/cp-core/internal/auth"
	"github.com/simpleg-eu/cp-core/internal/config"
	"github.com/simpleg-eu/cp-core/internal/jwks"
	"github.com/simpleg-eu/cp-core/internal/middleware"
)

// Router wraps HTTP routing functionality with configuration and the
// dependencies handlers share.
type Router struct {
	Config    *config.Config
	Mux       *http.ServeMux
	BaseRoute string
	Keys      jwks.KeySource
	Gate      auth.Authorizer
}

// NewRouter creates a new Router with the given mux, base route, and configuration
func NewRouter(mux *http.ServeMux, baseRoute string, cfg *config.Config, keys jwks.KeySource, gate auth.Authorizer) *Router {
	return &Router{cfg, mux, baseRoute, keys, gate}
}

// Path joins the base route and p.
func (rt *Router) Path(p string) string {
	return rt.BaseRoute + p
}

// Public returns a route group needing no credential.
func (rt *Router) Public() *middleware.RouteGroup {
	return middleware.PublicGroup(rt.Mux)
}

// Protected returns a route group guarded by the bearer-token gate.
func (rt *Router) Protected() *middleware.RouteGroup {
	return middleware.ProtectedGroup(rt.Mux, rt.Gate)
}
