package health

import (
	"fmt"
	"net/http"

	"github.com/simpleg-eu/cp-core/internal/httputil"
	"github.com/simpleg-eu/cp-core/internal/svrlib"
)

type HealthRouter struct {
	*svrlib.Router
}

// ReadyResponse is the body of /readyz.
type ReadyResponse struct {
	Status string `json:"status"`
	Keys   int    `json:"keys"`
}

// RegisterRoutes registers all health check routes on the router's mux
func RegisterRoutes(r *svrlib.Router) {
	router := &HealthRouter{r}
	public := r.Public()
	public.HandleFunc(r.Path("/healthz"), router.HealthzHandler)
	public.HandleFunc(r.Path("/readyz"), router.ReadyzHandler)
}

// HealthzHandler responds to /healthz requests for health checks
func (rt *HealthRouter) HealthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "ok")
}

// ReadyzHandler reports ready once a key set is loaded.
func (rt *HealthRouter) ReadyzHandler(w http.ResponseWriter, r *http.Request) {
	if rt.Keys == nil || rt.Keys.KeySet() == nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "unavailable"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ReadyResponse{Status: "ready", Keys: rt.Keys.KeySet().Len()})
}
