package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

const (
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderRealIP       = "X-Real-IP"

	UnknownClient = "unknown"
)

// ClientIP identifica a origem de rede a partir dos headers.
//
// Precedência: primeiro valor de X-Forwarded-For (trim), X-Real-IP como veio,
// e por fim "unknown". Não valida a sintaxe do IP: é identificação de melhor
// esforço e não atribuição segura do cliente.
func ClientIP(h http.Header) string {
	if xff := h.Get(HeaderForwardedFor); xff != "" {
		// o primeiro elemento vale mesmo vazio (", 5.6.7.8" dá ""): X-Real-IP
		// só é consultado quando X-Forwarded-For não veio
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if realIP := h.Get(HeaderRealIP); realIP != "" {
		return realIP
	}
	return UnknownClient
}

// remoteHost extrai o host de r.RemoteAddr.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return UnknownClient
}

// EdgeHeaders normaliza os headers de origem quando o gateway é a borda.
//
// Com trust=false, X-Forwarded-For é removido e X-Real-IP passa a ser o peer TCP,
// de modo que ClientIP não possa ser enganado pelo cliente. Com trust=true os
// headers seguem intactos (há um proxy confiável na frente).
func EdgeHeaders(trust bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if trust {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del(HeaderForwardedFor)
			r.Header.Set(HeaderRealIP, remoteHost(r))
			next.ServeHTTP(w, r)
		})
	}
}
