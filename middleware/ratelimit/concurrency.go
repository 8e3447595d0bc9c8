package ratelimit

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"syriahub-gateway/middleware/ratelimit/application"
	"syriahub-gateway/middleware/ratelimit/domain"
)

type ConcurrencyOptions struct {
	Pool           domain.SlotPool
	RejectStatus   int
	AcquireTimeout time.Duration
	Logger         *slog.Logger
}

// ConcurrencyMiddleware limita quantas requisições seguem ao mesmo tempo.
// Sem Pool, é no-op.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Pool == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	svc := application.ConcurrencyService{
		Pool:           opts.Pool,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := svc.Acquire(r.Context())
			if err != nil {
				if errors.Is(err, application.ErrNoSlot) {
					opts.Logger.Warn("concurrency limit reached", "in_flight", opts.Pool.InFlight(), "capacity", opts.Pool.Capacity())
				}
				writeJSON(w, opts.RejectStatus, errorBody{Error: "server_busy", Message: http.StatusText(opts.RejectStatus)})
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
