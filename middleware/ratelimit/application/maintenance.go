package application

import (
	"context"
	"math/rand"
	"time"

	"syriahub-gateway/middleware/ratelimit/domain"
)

// DefaultSweepProbability é a fração de checagens que dispara uma varredura.
const DefaultSweepProbability = 0.01

// MaintenancePolicy decide quando entradas expiradas são removidas.
// Nenhuma política afeta a decisão: entrada expirada equivale a ausente.
type MaintenancePolicy interface {
	AfterCheck(now time.Time)
}

// NoMaintenance não faz nada. Usado com counters que expiram sozinhos (Redis)
// ou quando um Janitor periódico cuida da limpeza.
type NoMaintenance struct{}

func (NoMaintenance) AfterCheck(time.Time) {}

// ProbabilisticSweep varre o store inteiro em uma fração das checagens.
type ProbabilisticSweep struct {
	Sweeper     domain.Sweeper
	Probability float64
	// Rand retorna um valor em [0,1). Padrão: math/rand.
	Rand func() float64
}

func (p ProbabilisticSweep) AfterCheck(now time.Time) {
	if p.Sweeper == nil {
		return
	}
	prob := p.Probability
	if prob <= 0 {
		prob = DefaultSweepProbability
	}
	rnd := p.Rand
	if rnd == nil {
		rnd = rand.Float64
	}
	if rnd() < prob {
		p.Sweeper.Sweep(now)
	}
}

// StartJanitor inicia uma goroutine que varre o store a cada intervalo.
// Pare cancelando o contexto.
func StartJanitor(ctx context.Context, s domain.Sweeper, every time.Duration, now func() time.Time) {
	if s == nil || every <= 0 {
		return
	}
	if now == nil {
		now = time.Now
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep(now())
			}
		}
	}()
}
