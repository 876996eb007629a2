package middleware

import (
	"net/http"

	"github.com/simpleg-eu/cp-core/internal/apperr"
	"github.com/simpleg-eu/cp-core/internal/auth"
	"github.com/simpleg-eu/cp-core/internal/httputil"
	"github.com/simpleg-eu/cp-core/internal/logger"
)

// Authenticate runs every request through gate. Rejected requests get an
// error response; accepted ones carry the validated token in their context.
func Authenticate(gate auth.Authorizer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := gate.AuthorizeToken(r.Header)
			if err != nil {
				LogRejection(r, err)
				httputil.WriteAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), tok)))
		})
	}
}

// LogRejection logs structural failures louder than expired or revoked credentials.
func LogRejection(r *http.Request, err error) {
	ctx := r.Context()
	fields := []any{"kind", apperr.KindOf(err), "error", err, "path", r.URL.Path}

	switch apperr.KindOf(err) {
	case apperr.KindMalformedToken:
		logger.WarnCtx(ctx, "Rejected malformed credential", fields...)
	case apperr.KindInvalidToken:
		logger.InfoCtx(ctx, "Rejected invalid credential", fields...)
	case apperr.KindInvalidHeaders:
		logger.DebugCtx(ctx, "Rejected request without usable credential", fields...)
	default:
		logger.ErrorCtx(ctx, "Authorization failed", fields...)
	}
}
