// Package gateway monta o proxy reverso com rate limit na frente da API do SyriaHub.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"syriahub-gateway/internal/config"
	"syriahub-gateway/internal/routing"
	"syriahub-gateway/middleware/identity"
	"syriahub-gateway/middleware/ratelimit"
	"syriahub-gateway/middleware/ratelimit/application"
	"syriahub-gateway/middleware/ratelimit/domain"
	"syriahub-gateway/middleware/ratelimit/infra"
)

type Gateway struct {
	cfg *config.Config
	log *slog.Logger

	limiter  *application.Limiter
	memory   *infra.MemoryStore
	burst    *infra.BurstStore
	pool     domain.SlotPool
	rdb      *redis.Client
	ownsRDB  bool
	registry *prometheus.Registry
	now      func() time.Time

	handler http.Handler
}

type Option func(*Gateway)

// WithRedisClient usa um client já criado em vez de abrir um a partir da config.
func WithRedisClient(rdb *redis.Client) Option {
	return func(g *Gateway) { g.rdb = rdb }
}

// WithClock injeta o relógio do limiter (testes).
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func New(cfg *config.Config, log *slog.Logger, opts ...Option) (*Gateway, error) {
	if log == nil {
		log = slog.Default()
	}
	g := &Gateway{cfg: cfg, log: log, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}

	target, err := url.Parse(cfg.Upstream.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url: %w", err)
	}

	policies, err := cfg.Policies()
	if err != nil {
		return nil, err
	}

	if err := g.initRedis(); err != nil {
		return nil, err
	}

	counter, maintenance := g.initCounter()
	g.limiter, err = application.NewLimiter(counter, policies,
		application.WithClock(g.now),
		application.WithMaintenance(maintenance),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create limiter: %w", err)
	}

	table, err := routing.NewTable(routeRules(cfg.Routes), policies)
	if err != nil {
		return nil, err
	}

	stats, err := g.initStats()
	if err != nil {
		return nil, err
	}

	gate, err := ratelimit.NewGate(ratelimit.GateOptions{
		Limiter:    g.limiter,
		Stats:      stats,
		Logger:     log.With("component", "ratelimit"),
		FailClosed: cfg.RateLimit.FailClosed,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Burst.Enabled {
		g.burst = infra.NewBurstStore(cfg.Burst.RPS, cfg.Burst.Burst)
	}
	if cfg.Concurrency.Max > 0 {
		g.pool = infra.NewChanPool(cfg.Concurrency.Max)
	}

	auth := identity.New(identity.Options{
		JWTSecret:     cfg.Auth.JWTSecret,
		TrustedHeader: cfg.Auth.UserIDHeader,
		Logger:        log.With("component", "identity"),
	})

	g.handler = g.routes(newProxy(target, log), gate, table, auth)
	return g, nil
}

func (g *Gateway) initRedis() error {
	needsRedis := g.cfg.Storage.Type == "redis" || g.cfg.Stats.Redis
	if !needsRedis || g.rdb != nil {
		return nil
	}

	rc := g.cfg.Storage.Redis
	g.rdb = redis.NewClient(&redis.Options{
		Addr:     rc.Addr(),
		Password: rc.Password,
		DB:       rc.DB,
	})
	g.ownsRDB = true

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.rdb.Ping(ctx).Err(); err != nil {
		_ = g.rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (g *Gateway) initCounter() (domain.WindowCounter, application.MaintenancePolicy) {
	if g.cfg.Storage.Type == "redis" {
		return infra.NewRedisCounter(g.rdb, infra.WithCounterPrefix(g.cfg.Storage.Redis.Prefix)), application.NoMaintenance{}
	}

	g.memory = infra.NewMemoryStore()
	if g.cfg.RateLimit.Sweep.Mode == config.SweepInterval {
		return g.memory, application.NoMaintenance{}
	}
	return g.memory, application.ProbabilisticSweep{
		Sweeper:     g.memory,
		Probability: g.cfg.RateLimit.Sweep.Probability,
	}
}

func (g *Gateway) initStats() (domain.StatsStore, error) {
	var sinks domain.MultiStats

	if g.cfg.Stats.Prometheus {
		g.registry = prometheus.NewRegistry()
		g.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		ps, err := infra.NewPrometheusStats(g.registry)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		sinks = append(sinks, ps)
	}

	if g.cfg.Stats.Redis {
		sinks = append(sinks, infra.NewRedisStatsStore(g.rdb, infra.RedisStatsConfig{
			Prefix:    g.cfg.Stats.Prefix,
			TTL:       g.cfg.Stats.TTL,
			Slice:     g.cfg.Stats.Slice,
			TrackKeys: g.cfg.Stats.TrackKeys,
		}))
	}

	if len(sinks) == 0 {
		return nil, nil
	}
	return sinks, nil
}

func routeRules(routes []config.RouteConfig) []routing.Rule {
	if len(routes) == 0 {
		return routing.DefaultRules()
	}
	rules := make([]routing.Rule, 0, len(routes))
	for _, r := range routes {
		rules = append(rules, routing.Rule{
			Method:   r.Method,
			Prefix:   r.Prefix,
			Category: domain.Category(r.Category),
		})
	}
	return rules
}

func newProxy(target *url.URL, log *slog.Logger) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)
	// os headers de quota são do gateway; os do upstream seriam somados a eles
	proxy.ModifyResponse = func(resp *http.Response) error {
		for _, h := range []string{ratelimit.HeaderLimit, ratelimit.HeaderRemaining, ratelimit.HeaderReset} {
			resp.Header.Del(h)
		}
		return nil
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error("proxy error", "error", err, "path", r.URL.Path)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad_gateway"})
	}
	return proxy
}

func (g *Gateway) routes(proxy http.Handler, gate *ratelimit.Gate, table *routing.Table, auth *identity.Authenticator) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", g.health)
	if g.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.EdgeHeaders(g.cfg.RateLimit.TrustForwardedHeaders))
		r.Use(ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
			Pool:           g.pool,
			AcquireTimeout: g.cfg.Concurrency.Timeout,
			Logger:         g.log,
		}))
		r.Use(auth.Middleware)
		if g.burst != nil {
			r.Use(ratelimit.BurstMiddleware(ratelimit.BurstOptions{
				Store:     g.burst,
				KeyHeader: g.cfg.Burst.KeyHeader,
				Logger:    g.log,
			}))
		}
		if len(g.cfg.Origin.AllowedOrigins) > 0 {
			r.Use(ratelimit.SameOrigin(g.cfg.Origin.AllowedOrigins, g.log))
		}
		r.Use(gate.ByCategory(table.Classify))
		r.Handle("/*", proxy)
	})

	return r
}

func (g *Gateway) Handler() http.Handler { return g.handler }

func (g *Gateway) Limiter() *application.Limiter { return g.limiter }

// Start inicia as rotinas de limpeza em segundo plano. Pare cancelando ctx.
func (g *Gateway) Start(ctx context.Context) {
	interval := g.cfg.RateLimit.Sweep.Interval
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	if g.memory != nil && g.cfg.RateLimit.Sweep.Mode == config.SweepInterval {
		application.StartJanitor(ctx, g.memory, interval, g.now)
	}
	if g.burst != nil {
		application.StartJanitor(ctx, g.burst, interval, time.Now)
	}
}

// Run serve até ctx ser cancelado e então faz shutdown gracioso.
func (g *Gateway) Run(ctx context.Context) error {
	g.Start(ctx)

	srv := &http.Server{
		Addr:              g.cfg.Server.Addr(),
		Handler:           g.handler,
		ReadHeaderTimeout: g.cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       g.cfg.Server.ReadTimeout,
		WriteTimeout:      g.cfg.Server.WriteTimeout,
		IdleTimeout:       g.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	g.log.Info("gateway listening",
		"addr", srv.Addr,
		"upstream", g.cfg.Upstream.URL,
		"storage", g.cfg.Storage.Type,
		"sweep", g.cfg.RateLimit.Sweep.Mode,
		"burst", g.burst != nil,
		"concurrency_max", g.cfg.Concurrency.Max,
	)
	if g.cfg.Storage.Type == "memory" {
		g.log.Warn("rate limit state is process-local; with multiple instances the effective limit is multiplied by the instance count")
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		g.log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), g.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (g *Gateway) Close() error {
	if g.ownsRDB && g.rdb != nil {
		return g.rdb.Close()
	}
	return nil
}

type healthResponse struct {
	Status   string `json:"status"`
	Storage  string `json:"storage"`
	Entries  *int   `json:"entries,omitempty"`
	InFlight *int   `json:"in_flight,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (g *Gateway) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Storage: g.cfg.Storage.Type}
	status := http.StatusOK

	if g.memory != nil {
		n := g.memory.Len()
		resp.Entries = &n
	}
	if g.pool != nil {
		n := g.pool.InFlight()
		resp.InFlight = &n
	}
	if g.rdb != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := g.rdb.Ping(ctx).Err(); err != nil {
			resp.Status = "degraded"
			resp.Error = "redis unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
