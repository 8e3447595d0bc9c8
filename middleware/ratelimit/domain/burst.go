package domain

// BurstLimiter decide se uma ação é permitida agora, sem noção de janela.
//
// É o contrato do guard de rajada que roda antes das categorias; a
// implementação em infra é token-bucket (golang.org/x/time/rate).
type BurstLimiter interface {
	Allow() bool
}

// BurstStore obtém um limiter por chave (IP ou usuário).
type BurstStore interface {
	Get(Key) BurstLimiter
}
