package middleware

import (
	"log/slog"
	"net/http"

	"github.com/vymjay/aprylo/pkg/logger"
)

// RequestLogger builds a request-scoped logger enriched with the request ID
// and caller identity, and stores it in context for handlers to retrieve via
// logger.FromContext. Mount after RequestLogging and Authenticate.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if uid := UserIDFromContext(ctx); uid != "" {
				ctx = logger.WithUserID(ctx, uid)
			}

			enriched := logger.Enrich(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
