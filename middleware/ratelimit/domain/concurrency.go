package domain

import "context"

// SlotPool limita quantas requisições o gateway encaminha ao upstream ao mesmo tempo.
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar. Ao adquirir,
// retorna uma função de release que deve ser chamada exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
	// InFlight retorna quantas vagas estão ocupadas agora (usado no /healthz).
	InFlight() int
	Capacity() int
}
