package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

// Key é a chave composta de um bucket: "{identifier}:{userIdOrIp}".
type Key string

// BucketKey monta a chave do bucket. userID tem preferência sobre ip para que
// usuários autenticados atrás do mesmo NAT/proxy não dividam a mesma cota.
func BucketKey(p Policy, userID, ip string) Key {
	id := userID
	if id == "" {
		id = ip
	}
	return Key(p.Identifier + ":" + id)
}

// Entry é o estado mutável de uma janela fixa.
type Entry struct {
	Count   int
	ResetAt time.Time
}

// Expired reporta se a janela já fechou em now. Uma entrada expirada equivale a ausente.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ResetAt)
}

// Request identifica quem está sendo checado e sob qual categoria.
type Request struct {
	// UserID vem de uma autenticação anterior; vazio para anônimos.
	UserID   string
	IP       string
	Category Category
}

// Result é a decisão de uma checagem.
type Result struct {
	Success   bool
	Remaining int
	ResetAt   time.Time
	// RetryAfter em segundos; só é definido quando Success == false.
	RetryAfter int
	// Limit é o MaxRequests da política aplicada.
	Limit int
}

// EntryStore é o armazenamento de entradas por chave.
//
// Implementações não precisam ser atômicas entre chamadas: quem faz o
// check-then-increment deve serializar o acesso (ver WindowCounter).
type EntryStore interface {
	Get(key Key) (Entry, bool)
	Set(key Key, e Entry)
	Delete(key Key)
	Keys() []Key
}

// WindowCounter registra uma requisição na janela fixa de key e retorna a
// entrada pós-incremento. Janela ausente ou expirada reinicia com Count=1 e
// ResetAt=now+window. A operação é atômica por chave.
type WindowCounter interface {
	Hit(ctx context.Context, key Key, window time.Duration, now time.Time) (Entry, error)
}

// Sweeper remove entradas expiradas. Retorna quantas foram removidas.
type Sweeper interface {
	Sweep(now time.Time) int
}
