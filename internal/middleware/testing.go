package middleware

import (
	"net/http"

	"github.com/simpleg-eu/cp-core/internal/jwtutil"
)

// TestTokenMiddleware puts a placeholder validated token into the context
func TestTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), &jwtutil.ValidatedToken{})))
	})
}

// TestProtectedChain is like ProtectedGroup's stack but skips the gate
func TestProtectedChain() *Chain {
	return NewChain(TestTokenMiddleware, RequireToken)
}
