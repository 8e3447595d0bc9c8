package ratelimit

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// SameOrigin rejeita com 403 requisições que alteram estado vindas de uma
// origem fora de allowed. GET, HEAD e OPTIONS passam direto, assim como
// requisições sem Origin nem Referer (clientes que não são navegador).
//
// É independente do rate limit; compõe-se com Gate.Limit nas rotas de escrita.
func SameOrigin(allowed []string, logger *slog.Logger) func(next http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		if o := normalizeOrigin(a); o != "" {
			set[o] = struct{}{}
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = r.Header.Get("Referer")
			}
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := set[normalizeOrigin(origin)]; !ok {
				logger.Warn("cross-origin request rejected", "origin", origin, "method", r.Method, "path", r.URL.Path)
				writeJSON(w, http.StatusForbidden, errorBody{Error: "invalid_origin", Message: "Request origin is not allowed."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// normalizeOrigin reduz uma URL a "scheme://host" em minúsculas.
func normalizeOrigin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}
