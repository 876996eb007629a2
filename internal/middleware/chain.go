// Package middleware provides HTTP middleware chain functionality
package middleware

import (
	"net/http"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain represents a middleware chain that can be applied to handlers
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{
		middlewares: append([]Middleware(nil), middlewares...),
	}
}

// Then applies the middleware chain to a handler. A nil handler responds 404.
func (c *Chain) Then(handler http.Handler) http.Handler {
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	// Apply middlewares in reverse order so they execute in the order specified
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}

	return handler
}

// ThenFunc applies the middleware chain to a handler function
func (c *Chain) ThenFunc(handlerFunc http.HandlerFunc) http.Handler {
	return c.Then(handlerFunc)
}

// Append returns a new chain with middlewares added to the end
func (c *Chain) Append(middlewares ...Middleware) *Chain {
	return NewChain(append(append([]Middleware(nil), c.middlewares...), middlewares...)...)
}

// Prepend returns a new chain with middlewares added to the beginning
func (c *Chain) Prepend(middlewares ...Middleware) *Chain {
	return NewChain(append(append([]Middleware(nil), middlewares...), c.middlewares...)...)
}
