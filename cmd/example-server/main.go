package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"syriahub-gateway/internal/logger"
	"syriahub-gateway/middleware/identity"
	"syriahub-gateway/middleware/ratelimit"
	"syriahub-gateway/middleware/ratelimit/application"
	"syriahub-gateway/middleware/ratelimit/domain"
	"syriahub-gateway/middleware/ratelimit/infra"
)

func main() {
	// Exemplo: usando o gate direto no webserver (sem proxy), uma categoria por rota
	log := logger.NewWithWriter(os.Stdout, logger.Config{Level: "debug"})

	r, err := newHandler(log, os.Getenv("JWT_SECRET"))
	if err != nil {
		log.Error("failed to build handler", "error", err)
		os.Exit(1)
	}

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("example server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newHandler(log *slog.Logger, jwtSecret string) (http.Handler, error) {
	store := infra.NewMemoryStore()
	limiter, err := application.NewLimiter(store, domain.DefaultPolicies(),
		application.WithMaintenance(application.ProbabilisticSweep{Sweeper: store}),
	)
	if err != nil {
		return nil, err
	}

	stats := infra.NewMemoryStatsStore()
	gate, err := ratelimit.NewGate(ratelimit.GateOptions{Limiter: limiter, Stats: stats, Logger: log})
	if err != nil {
		return nil, err
	}

	auth := identity.New(identity.Options{
		JWTSecret: jwtSecret,
		Logger:    log,
	})

	r := chi.NewRouter()
	// servidor exposto direto: o IP do rate limit vem do peer TCP
	r.Use(ratelimit.EdgeHeaders(false))
	r.Use(auth.Middleware)

	r.With(gate.Limit(domain.CategoryRead)).Get("/api/posts", ok("posts"))
	r.With(
		ratelimit.SameOrigin([]string{"http://localhost:3000"}, log),
		gate.Limit(domain.CategoryWrite),
	).Post("/api/posts", ok("created"))
	r.With(gate.Limit(domain.CategoryAuth)).Post("/api/auth/login", ok("signed in"))
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats.Snapshot())
	})
	return r, nil
}

func ok(msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"message": msg,
			"user":    identity.FromRequest(r),
		})
	}
}
