// Package application contém os casos de uso do rate limit por categoria e do
// limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Limiter.Check(ctx, req) retorna um domain.Result (allow/deny + remaining + retry-after).
package application
