package infra

import (
	"context"
	"maps"
	"sync"

	"syriahub-gateway/middleware/ratelimit/domain"
)

type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

func (c Counters) with(allowed bool) Counters {
	if allowed {
		c.Allowed++
	} else {
		c.Denied++
	}
	return c
}

// StatsSnapshot é uma cópia dos contadores em memória.
type StatsSnapshot struct {
	Total      Counters                     `json:"total"`
	ByCategory map[domain.Category]Counters `json:"by_category"`
	ByRoute    map[string]Counters          `json:"by_route"`
	ByKey      map[string]Counters          `json:"by_key,omitempty"`
}

// MemoryStatsStore acumula as decisões no processo. Sem expiração: por
// categoria e por rota (método + categoria) o conjunto é fechado; ByKey cresce
// com o número de clientes e por isso é opcional.
type MemoryStatsStore struct {
	mu        sync.RWMutex
	snap      StatsSnapshot
	trackKeys bool
}

var _ domain.StatsStore = (*MemoryStatsStore)(nil)

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{snap: StatsSnapshot{
		ByCategory: make(map[domain.Category]Counters),
		ByRoute:    make(map[string]Counters),
		ByKey:      make(map[string]Counters),
	}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	route := ev.RouteLabel()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Total = s.snap.Total.with(ev.Allowed)
	s.snap.ByCategory[ev.Category] = s.snap.ByCategory[ev.Category].with(ev.Allowed)
	s.snap.ByRoute[route] = s.snap.ByRoute[route].with(ev.Allowed)
	if s.trackKeys {
		k := string(ev.Key)
		s.snap.ByKey[k] = s.snap.ByKey[k].with(ev.Allowed)
	}
	return nil
}

// Snapshot devolve uma cópia consistente de todos os contadores.
func (s *MemoryStatsStore) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatsSnapshot{
		Total:      s.snap.Total,
		ByCategory: maps.Clone(s.snap.ByCategory),
		ByRoute:    maps.Clone(s.snap.ByRoute),
		ByKey:      maps.Clone(s.snap.ByKey),
	}
}

func (s *MemoryStatsStore) Total() Counters { return s.Snapshot().Total }

func (s *MemoryStatsStore) ByCategory() map[domain.Category]Counters {
	return s.Snapshot().ByCategory
}

func (s *MemoryStatsStore) ByRoute() map[string]Counters { return s.Snapshot().ByRoute }

func (s *MemoryStatsStore) ByKey() map[string]Counters { return s.Snapshot().ByKey }
