package infra

import (
	"context"
	"sync"
	"time"

	"syriahub-gateway/middleware/ratelimit/domain"
)

// MemoryStore guarda as janelas fixas em um mapa do processo.
//
// Implementa domain.EntryStore, domain.WindowCounter e domain.Sweeper.
// O estado é local: com N instâncias atrás de um load balancer, o limite
// efetivo da frota é MaxRequests × N. Use RedisCounter quando isso importa.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[domain.Key]domain.Entry
}

var (
	_ domain.EntryStore    = (*MemoryStore)(nil)
	_ domain.WindowCounter = (*MemoryStore)(nil)
	_ domain.Sweeper       = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[domain.Key]domain.Entry)}
}

func (s *MemoryStore) Get(key domain.Key) (domain.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *MemoryStore) Set(key domain.Key, e domain.Entry) {
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
}

func (s *MemoryStore) Delete(key domain.Key) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *MemoryStore) Keys() []domain.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Key, 0, len(s.entries))
	for k := range s.entries {
		out = append(out, k)
	}
	return out
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Hit implementa domain.WindowCounter. Leitura e escrita acontecem sob o mesmo
// lock, senão duas requisições concorrentes poderiam ler Count = Max-1 e
// ambas passarem.
func (s *MemoryStore) Hit(_ context.Context, key domain.Key, window time.Duration, now time.Time) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.Expired(now) {
		e = domain.Entry{Count: 1, ResetAt: now.Add(window)}
	} else {
		// sem clamp: o contador continua subindo em requisições negadas
		e.Count++
	}
	s.entries[key] = e
	return e, nil
}

// Sweep remove toda entrada com ResetAt <= now.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}
