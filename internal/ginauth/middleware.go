// Package ginauth adapts the bearer-token gate to gin routers.
package ginauth

import (
	"github.com/gin-gonic/gin"
	"github.com/simpleg-eu/cp-core/internal/auth"
	"github.com/simpleg-eu/cp-core/internal/httputil"
	"github.com/simpleg-eu/cp-core/internal/jwtutil"
	"github.com/simpleg-eu/cp-core/internal/middleware"
)

// TokenKey is the gin context key the validated token is stored under.
const TokenKey = "auth_token"

// Middleware rejects requests that gate does not authorize. Accepted
// requests carry the token both in the gin context and the request context.
func Middleware(gate auth.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, err := gate.AuthorizeToken(c.Request.Header)
		if err != nil {
			middleware.LogRejection(c.Request, err)
			httputil.WriteAuthError(c.Writer, err)
			c.Abort()
			return
		}

		c.Set(TokenKey, tok)
		c.Request = c.Request.WithContext(middleware.WithToken(c.Request.Context(), tok))
		c.Next()
	}
}

// Token returns the validated token stored by Middleware.
func Token(c *gin.Context) (jwtutil.Token, bool) {
	v, ok := c.Get(TokenKey)
	if !ok {
		return nil, false
	}
	tok, ok := v.(jwtutil.Token)
	return tok, ok
}
