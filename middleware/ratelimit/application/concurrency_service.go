package application

import (
	"context"
	"errors"
	"time"

	"syriahub-gateway/middleware/ratelimit/domain"
)

// ErrNoSlot indica que o timeout de aquisição venceu sem vaga livre.
var ErrNoSlot = errors.New("no concurrency slot available")

// ConcurrencyService concentra a regra de aquisição/liberação de vagas com timeout,
// sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
//   - Sem Pool, sempre libera.
//   - AcquireTimeout <= 0 espera até ctx encerrar.
//   - AcquireTimeout > 0 espera até o timeout e então retorna ErrNoSlot.
//
// Se o próprio ctx do chamador foi cancelado (cliente desistiu), o erro é ctx.Err()
// e não ErrNoSlot, para que o adapter HTTP não conte isso como rejeição.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if ok {
		return release, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoSlot
}
