package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"syriahub-gateway/middleware/ratelimit/domain"
)

// Limiter aplica o algoritmo de janela fixa sobre um domain.WindowCounter.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna um Result.
// Uma instância é criada no startup e compartilhada pelos gates; testes podem
// criar quantas quiserem com relógio e store próprios.
type Limiter struct {
	counter     domain.WindowCounter
	policies    domain.Policies
	now         func() time.Time
	maintenance MaintenancePolicy
}

type LimiterOption func(*Limiter)

// WithClock injeta o relógio usado como "now" em cada checagem.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) { l.now = now }
}

// WithMaintenance define a política de limpeza chamada após cada checagem.
func WithMaintenance(m MaintenancePolicy) LimiterOption {
	return func(l *Limiter) { l.maintenance = m }
}

func NewLimiter(counter domain.WindowCounter, policies domain.Policies, opts ...LimiterOption) (*Limiter, error) {
	if counter == nil {
		return nil, errors.New("window counter is required")
	}
	if len(policies) == 0 {
		policies = domain.DefaultPolicies()
	}
	if err := policies.Validate(); err != nil {
		return nil, err
	}
	l := &Limiter{
		counter:     counter,
		policies:    policies.Clone(),
		now:         time.Now,
		maintenance: NoMaintenance{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Policies retorna uma cópia da tabela em uso.
func (l *Limiter) Policies() domain.Policies { return l.policies.Clone() }

// Policy resolve a política de c; entra em pânico se c não existir.
func (l *Limiter) Policy(c domain.Category) domain.Policy { return l.policies.MustPolicy(c) }

// Check registra a requisição no bucket de req e decide se ela pode seguir.
//
// Throttling não é erro: vem em Result.Success. O erro só aparece para
// categoria desconhecida ou falha do counter (ex.: Redis fora do ar).
func (l *Limiter) Check(ctx context.Context, req domain.Request) (domain.Result, error) {
	pol, err := l.policies.Lookup(req.Category)
	if err != nil {
		return domain.Result{}, err
	}

	now := l.now()
	key := domain.BucketKey(pol, req.UserID, req.IP)

	entry, err := l.counter.Hit(ctx, key, pol.Window, now)
	if err != nil {
		return domain.Result{}, fmt.Errorf("rate limit counter %s: %w", key, err)
	}

	l.maintenance.AfterCheck(now)

	return Evaluate(pol, entry, now), nil
}

// Evaluate converte a entrada pós-incremento em Result.
func Evaluate(pol domain.Policy, entry domain.Entry, now time.Time) domain.Result {
	if entry.Count > pol.MaxRequests {
		return domain.Result{
			Success:    false,
			Remaining:  0,
			ResetAt:    entry.ResetAt,
			RetryAfter: RetryAfterSeconds(entry.ResetAt, now),
			Limit:      pol.MaxRequests,
		}
	}
	return domain.Result{
		Success:   true,
		Remaining: pol.MaxRequests - entry.Count,
		ResetAt:   entry.ResetAt,
		Limit:     pol.MaxRequests,
	}
}

// RetryAfterSeconds é ceil((resetAt-now)/1s), nunca negativo.
func RetryAfterSeconds(resetAt, now time.Time) int {
	d := resetAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
