package ratelimit

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"syriahub-gateway/middleware/identity"
	"syriahub-gateway/middleware/ratelimit/application"
	"syriahub-gateway/middleware/ratelimit/domain"
)

const rateLimitedMessage = "Too many requests. Please try again later."

type GateOptions struct {
	Limiter *application.Limiter
	// UserID lê a identidade já resolvida. Padrão: identity.FromRequest.
	UserID func(r *http.Request) string
	// ClientIP padrão: ClientIP(r.Header).
	ClientIP func(r *http.Request) string
	Stats    domain.StatsStore
	Logger   *slog.Logger
	// FailClosed responde 503 quando o counter falha (ex.: Redis fora).
	// O padrão é deixar passar, como faz um limiter que não pode derrubar o tráfego.
	FailClosed bool
}

// Gate envolve handlers com a checagem por categoria.
type Gate struct {
	opts GateOptions
}

func NewGate(opts GateOptions) (*Gate, error) {
	if opts.Limiter == nil {
		return nil, errors.New("gate requires a limiter")
	}
	if opts.UserID == nil {
		opts.UserID = identity.FromRequest
	}
	if opts.ClientIP == nil {
		opts.ClientIP = func(r *http.Request) string { return ClientIP(r.Header) }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Gate{opts: opts}, nil
}

// Limit retorna o middleware da categoria c.
//
// A política é resolvida aqui, na montagem: categoria desconhecida entra em
// pânico em vez de cair em um default qualquer.
func (g *Gate) Limit(c domain.Category) func(next http.Handler) http.Handler {
	g.opts.Limiter.Policy(c)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(c, next, w, r)
		})
	}
}

func (g *Gate) serve(c domain.Category, next http.Handler, w http.ResponseWriter, r *http.Request) {
	req := domain.Request{
		UserID:   g.opts.UserID(r),
		IP:       g.opts.ClientIP(r),
		Category: c,
	}

	res, err := g.opts.Limiter.Check(r.Context(), req)
	if err != nil {
		g.opts.Logger.Error("rate limit check failed", "error", err, "category", c, "fail_closed", g.opts.FailClosed)
		if g.opts.FailClosed {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "rate_limit_unavailable", Message: http.StatusText(http.StatusServiceUnavailable)})
			return
		}
		next.ServeHTTP(w, r)
		return
	}

	key := domain.BucketKey(g.opts.Limiter.Policy(c), req.UserID, req.IP)
	g.record(r, c, key, res)

	SetHeaders(w.Header(), res)

	if !res.Success {
		g.opts.Logger.Debug("request throttled",
			"category", c,
			"key", key,
			"retry_after", res.RetryAfter,
			"path", r.URL.Path,
		)
		writeJSON(w, http.StatusTooManyRequests, errorBody{
			Error:      "rate_limited",
			Message:    rateLimitedMessage,
			RetryAfter: res.RetryAfter,
		})
		return
	}

	next.ServeHTTP(w, r)
}

func (g *Gate) record(r *http.Request, c domain.Category, key domain.Key, res domain.Result) {
	if g.opts.Stats == nil {
		return
	}
	err := g.opts.Stats.Record(r.Context(), domain.StatsEvent{
		Category:  c,
		Key:       key,
		Allowed:   res.Success,
		Remaining: res.Remaining,
		Method:    r.Method,
		Path:      r.URL.Path,
		At:        time.Now(),
	})
	if err != nil {
		g.opts.Logger.Warn("failed to record rate limit stats", "error", err)
	}
}

// ByCategory escolhe a categoria de cada requisição com classify e aplica o
// middleware correspondente. Os middlewares são montados uma vez, para todas
// as categorias do limiter.
func (g *Gate) ByCategory(classify func(r *http.Request) domain.Category) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handlers := make(map[domain.Category]http.Handler)
		for _, c := range g.opts.Limiter.Policies().Categories() {
			handlers[c] = g.Limit(c)(next)
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := classify(r)
			h, ok := handlers[c]
			if !ok {
				g.opts.Logger.Error("route classified into unknown category", "category", c, "path", r.URL.Path)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error", Message: http.StatusText(http.StatusInternalServerError)})
				return
			}
			h.ServeHTTP(w, r)
		})
	}
}

type errorBody struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
