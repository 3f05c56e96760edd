// jobly api-service
//
// Job board catalog: companies, jobs, users and their applications.
// Exposes a REST API used by the Gateway and a gRPC JobService:
//   - companies and jobs: filtered listing, lookup, admin-only mutations
//   - users: admin or self access, bcrypt-hashed passwords
//   - applications: INTERESTED → APPLIED → ACCEPTED | REJECTED
//
// Publishes EVENT_* mutation events to Redis for Gateway SSE forward.
// Serves Prometheus metrics on /metrics, refreshed by a cron job.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"jobly/api-service/internal/catalog"
	"jobly/api-service/internal/config"
	"jobly/api-service/internal/db"
	"jobly/api-service/internal/grpcserver"
	"jobly/api-service/internal/logging"
	"jobly/api-service/internal/metrics"
	"jobly/api-service/internal/scheduler"
	"jobly/api-service/internal/shutdown"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("api-service exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := logging.Configure(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	slog.Info("connecting to PostgreSQL")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		slog.Info("schema applied")
	}

	// ── Redis ────────────────────────────────────────────────────────────────
	slog.Info("connecting to Redis")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()

	svc := catalog.NewService(pool, rdb, catalog.BcryptHasher{Cost: cfg.BcryptCost})

	m := metrics.New()
	m.SampleBuildInfo()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.Handle("GET /metrics", m.Handler())
	catalog.NewHandler(svc).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      logging.Middleware(m.Middleware(mux)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// ── gRPC server ──────────────────────────────────────────────────────────
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcserver.LoggingInterceptor))
	health := grpcserver.Register(gs, grpcserver.NewServer(svc))

	// ── Scheduler ────────────────────────────────────────────────────────────
	sched := scheduler.New(svc, m, cfg.StatsInterval)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	go func() {
		slog.Info("http listening", "port", cfg.Port, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cancel(fmt.Errorf("http server: %w", err))
		}
	}()
	go func() {
		slog.Info("grpc listening", "port", cfg.GRPCPort)
		if err := gs.Serve(lis); err != nil {
			cancel(fmt.Errorf("grpc server: %w", err))
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	sd := shutdown.NewHandler(10 * time.Second)
	sd.Add("http", srv)
	sd.Add("grpc", shutdown.Func(func(ctx context.Context) error {
		health.Shutdown()
		stopped := make(chan struct{})
		go func() {
			gs.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
			return nil
		case <-ctx.Done():
			gs.Stop()
			return ctx.Err()
		}
	}))
	sd.Add("scheduler", sched)

	err = sd.Wait(runCtx)
	if cause := context.Cause(runCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return errors.Join(cause, err)
	}
	slog.Info("stopped")
	return err
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "api-service",
		"version": version,
	})
}
