package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// StatsEvent representa uma decisão do gate.
//
// Ele é propositalmente "agnóstico de HTTP": Method/Path são strings genéricas.
//
// Observação: cuidado com cardinalidade (ex.: salvar Key/Path sem controle pode
// explodir o número de séries/chaves em Redis ou Prometheus).
type StatsEvent struct {
	Category  Category
	Key       Key
	Allowed   bool
	Remaining int

	Method string
	Path   string

	At time.Time
}

// RouteLabel é a dimensão "rota" das estatísticas: método + categoria.
//
// O path cru não entra: atrás de um proxy catch-all cada path distinto viraria
// um campo novo. Métodos fora do conjunto HTTP padrão viram "OTHER".
func (ev StatsEvent) RouteLabel() string {
	cat := string(ev.Category)
	if cat == "" {
		cat = "none"
	}
	return normalizeMethod(ev.Method) + " " + cat
}

func normalizeMethod(m string) string {
	switch m := strings.ToUpper(strings.TrimSpace(m)); m {
	case "GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "CONNECT", "TRACE":
		return m
	case "":
		return "NONE"
	default:
		return "OTHER"
	}
}

// StatsStore é a estratégia de persistência para estatísticas do rate limit.
// Quem chama deve tratar erro como best-effort (não derrubar a request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// MultiStats distribui cada evento para vários stores.
type MultiStats []StatsStore

func (m MultiStats) Record(ctx context.Context, ev StatsEvent) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
