package ratelimit

import (
	"net/http"
	"strconv"

	"syriahub-gateway/middleware/ratelimit/domain"
)

const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// Headers monta os headers de rate limit de res.
//
// Remaining e Reset (epoch em segundos, arredondado para cima) sempre vêm;
// Retry-After só quando a requisição foi negada.
func Headers(res domain.Result) http.Header {
	h := make(http.Header, 4)
	SetHeaders(h, res)
	return h
}

// SetHeaders escreve os headers de res em h, sobrescrevendo valores anteriores.
func SetHeaders(h http.Header, res domain.Result) {
	if res.Limit > 0 {
		h.Set(HeaderLimit, strconv.Itoa(res.Limit))
	}
	h.Set(HeaderRemaining, strconv.Itoa(res.Remaining))
	h.Set(HeaderReset, strconv.FormatInt(resetEpochSeconds(res), 10))
	if !res.Success {
		h.Set(HeaderRetryAfter, strconv.Itoa(res.RetryAfter))
	}
}

func resetEpochSeconds(res domain.Result) int64 {
	ms := res.ResetAt.UnixMilli()
	secs := ms / 1000
	if ms%1000 > 0 {
		secs++
	}
	return secs
}
