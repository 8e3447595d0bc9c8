package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"syriahub-gateway/middleware/identity"
	"syriahub-gateway/middleware/ratelimit/domain"
)

type KeyFunc func(r *http.Request) string

type BurstOptions struct {
	Store domain.BurstStore
	KeyFn KeyFunc
	// KeyHeader, se presente na requisição, vira a chave (ex.: X-Api-Key).
	KeyHeader    string
	RejectStatus int
	// RetryAfter é usado quando o store não sabe estimar a espera.
	RetryAfter time.Duration
	Logger     *slog.Logger
}

type retryEstimator interface {
	RetryAfter(domain.Key) time.Duration
}

// DefaultKeyFunc usa, nessa ordem, o header keyHeader, o usuário autenticado e ClientIP.
func DefaultKeyFunc(keyHeader string) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return "key:" + v
			}
		}
		if id := identity.FromRequest(r); id != "" {
			return "user:" + id
		}
		return "ip:" + ClientIP(r.Header)
	}
}

// BurstMiddleware aplica um token bucket por chave antes das categorias.
// Sem Store, é no-op.
func BurstMiddleware(opts BurstOptions) func(next http.Handler) http.Handler {
	if opts.Store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := domain.Key(opts.KeyFn(r))

			if opts.Store.Get(key).Allow() {
				next.ServeHTTP(w, r)
				return
			}

			wait := opts.RetryAfter
			if est, ok := opts.Store.(retryEstimator); ok {
				wait = est.RetryAfter(key)
			}
			secs := int((wait + time.Second - 1) / time.Second)

			opts.Logger.Debug("burst limit exceeded", "key", key, "retry_after", secs)
			w.Header().Set(HeaderRetryAfter, strconv.Itoa(secs))
			writeJSON(w, opts.RejectStatus, errorBody{Error: "rate_limited", Message: rateLimitedMessage, RetryAfter: secs})
		})
	}
}
