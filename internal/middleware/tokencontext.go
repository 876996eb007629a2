package middleware

import (
	"context"
	"net/http"

	"github.com/simpleg-eu/cp-core/internal/httputil"
	"github.com/simpleg-eu/cp-core/internal/jwtutil"
)

type contextKey string

const tokenContextKey contextKey = "token"

// WithToken returns a copy of ctx carrying tok.
func WithToken(ctx context.Context, tok jwtutil.Token) context.Context {
	return context.WithValue(ctx, tokenContextKey, tok)
}

// TokenFromContext extracts the validated token from ctx
func TokenFromContext(ctx context.Context) (jwtutil.Token, bool) {
	tok, ok := ctx.Value(tokenContextKey).(jwtutil.Token)
	return tok, ok && tok != nil
}

// RequireToken rejects requests that reach it without a validated token.
func RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := TokenFromContext(r.Context()); !ok {
			httputil.WriteError(w, http.StatusUnauthorized, "authorization required", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}
