package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syriahub-gateway/middleware/ratelimit/domain"
)

func TestProbabilisticSweep_UsesProbability(t *testing.T) {
	counter := newMapCounter()

	ProbabilisticSweep{Sweeper: counter, Rand: func() float64 { return 0.5 }}.AfterCheck(time.Now())
	assert.Equal(t, 0, counter.swept, "0.5 >= default 1%")

	ProbabilisticSweep{Sweeper: counter, Rand: func() float64 { return 0.009 }}.AfterCheck(time.Now())
	assert.Equal(t, 1, counter.swept)

	ProbabilisticSweep{Sweeper: counter, Probability: 1, Rand: func() float64 { return 0.99 }}.AfterCheck(time.Now())
	assert.Equal(t, 2, counter.swept)

	assert.NotPanics(t, func() { ProbabilisticSweep{}.AfterCheck(time.Now()) })
}

func TestSweep_KeepsLiveEntries(t *testing.T) {
	clock := newFakeClock()
	counter := newMapCounter()
	l := newTestLimiter(t, counter, clock, WithMaintenance(ProbabilisticSweep{
		Sweeper:     counter,
		Probability: 1,
		Rand:        func() float64 { return 0 },
	}))

	check(t, l, "", "old", domain.CategoryWrite)
	clock.Advance(30 * time.Second)
	for i := 0; i < 3; i++ {
		check(t, l, "", "live", domain.CategoryWrite)
	}
	clock.Advance(31 * time.Second)

	// a varredura desta checagem remove "old" (expirada) e mantém "live"
	res := check(t, l, "", "live", domain.CategoryWrite)
	require.True(t, res.Success)
	assert.Equal(t, 16, res.Remaining)

	_, stillThere := counter.entries["write:old"]
	assert.False(t, stillThere)
	assert.Contains(t, counter.entries, domain.Key("write:live"))
}

func TestStartJanitor_SweepsUntilCancelled(t *testing.T) {
	counter := newMapCounter()
	ctx, cancel := context.WithCancel(context.Background())

	StartJanitor(ctx, counter, 5*time.Millisecond, nil)

	assert.Eventually(t, func() bool {
		counter.mu.Lock()
		defer counter.mu.Unlock()
		return counter.swept >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
}

func TestStartJanitor_NoopWithoutInterval(t *testing.T) {
	counter := newMapCounter()
	StartJanitor(context.Background(), counter, 0, nil)
	StartJanitor(context.Background(), nil, time.Millisecond, nil)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, counter.swept)
}
