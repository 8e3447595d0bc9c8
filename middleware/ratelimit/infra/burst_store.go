package infra

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"syriahub-gateway/middleware/ratelimit/domain"
)

// BurstStore é um token bucket por chave (x/time/rate) com limpeza de chaves
// inativas. Ele suaviza rajadas antes da checagem por categoria e não substitui
// as janelas fixas.
type BurstStore struct {
	mu      sync.Mutex
	entries map[string]*burstEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type burstEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

var (
	_ domain.BurstStore = (*BurstStore)(nil)
	_ domain.Sweeper    = (*BurstStore)(nil)
)

type BurstOption func(*BurstStore)

func WithIdleTTL(d time.Duration) BurstOption {
	return func(s *BurstStore) { s.idleTTL = d }
}

func WithBurstClock(now func() time.Time) BurstOption {
	return func(s *BurstStore) { s.now = now }
}

func NewBurstStore(rps float64, burst int, opts ...BurstOption) *BurstStore {
	s := &BurstStore{
		entries: make(map[string]*burstEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 15 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BurstStore) RPS() float64 { return float64(s.rps) }
func (s *BurstStore) Burst() int   { return s.burst }

// Get implementa domain.BurstStore.
func (s *BurstStore) Get(key domain.Key) domain.BurstLimiter {
	return s.limiter(string(key))
}

func (s *BurstStore) limiter(key string) *rate.Limiter {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &burstEntry{lim: lim, lastSeen: now}
	return lim
}

// RetryAfter estima quanto falta para o próximo token de key.
func (s *BurstStore) RetryAfter(key domain.Key) time.Duration {
	lim := s.limiter(string(key))
	r := lim.ReserveN(s.now(), 1)
	if !r.OK() {
		return time.Second
	}
	d := r.DelayFrom(s.now())
	r.CancelAt(s.now())
	if d < time.Second {
		return time.Second
	}
	return d
}

// Sweep remove chaves sem uso há mais de idleTTL.
func (s *BurstStore) Sweep(now time.Time) int {
	cutoff := now.Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}
