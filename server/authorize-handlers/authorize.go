// Package authorize exposes the gate as an HTTP endpoint, for reverse
// proxies doing sub-request authorization.
package authorize

import (
	"net/http"

	"github.com/simpleg-eu/cp-core/internal/logger"
	"github.com/simpleg-eu/cp-core/internal/svrlib"
)

type AuthorizeRouter struct {
	*svrlib.Router
}

// RegisterRoutes mounts /authorize under the router's base route.
func RegisterRoutes(r *svrlib.Router) {
	router := &AuthorizeRouter{r}
	r.Protected().HandleFunc(r.Path("/authorize"), router.AuthorizeHandler)
}

// AuthorizeHandler only runs for requests the gate accepted.
func (rt *AuthorizeRouter) AuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	logger.DebugCtx(r.Context(), "Authorized request", "method", r.Method)
	w.WriteHeader(http.StatusNoContent)
}
