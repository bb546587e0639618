package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/reupload/pkg/logger"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// HealthCheckHandler serves liveness and readiness probes. With no checks it
// always answers 200 "ALIVE". Otherwise every check runs with the request
// context: 200 "READY" if all pass, 503 "NOT_READY" on the first failure.
func HealthCheckHandler(log *slog.Logger, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")

		if len(checks) == 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ALIVE"))
			return
		}

		ctx := r.Context()
		for _, check := range checks {
			if err := check(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", logger.Component("health"), logger.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("NOT_READY"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}
