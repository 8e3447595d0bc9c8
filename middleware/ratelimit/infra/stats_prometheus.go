package infra

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"syriahub-gateway/middleware/ratelimit/domain"
)

// PrometheusStats exporta as decisões como métricas.
//
// Key e Path não viram labels (cardinalidade); só categoria e resultado.
type PrometheusStats struct {
	decisions *prometheus.CounterVec
	remaining *prometheus.HistogramVec
}

func NewPrometheusStats(reg prometheus.Registerer) (*PrometheusStats, error) {
	s := &PrometheusStats{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syriahub",
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limit decisions by category and outcome.",
		}, []string{"category", "outcome"}),
		remaining: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "syriahub",
			Subsystem: "ratelimit",
			Name:      "remaining_quota",
			Help:      "Remaining quota observed on admitted requests.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}, []string{"category"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{s.decisions, s.remaining} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *PrometheusStats) Record(_ context.Context, ev domain.StatsEvent) error {
	cat := string(ev.Category)
	s.decisions.WithLabelValues(cat, outcome(ev.Allowed)).Inc()
	if ev.Allowed {
		s.remaining.WithLabelValues(cat).Observe(float64(ev.Remaining))
	}
	return nil
}
