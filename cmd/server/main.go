package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gatehouse/internal/audit"
	"gatehouse/internal/booking"
	bookinghandler "gatehouse/internal/booking/handler"
	bookingservice "gatehouse/internal/booking/service"
	"gatehouse/internal/capacity"
	"gatehouse/internal/credential"
	"gatehouse/internal/directory"
	directoryhandler "gatehouse/internal/directory/handler"
	"gatehouse/internal/jwtauth"
	"gatehouse/internal/lifecycle"
	lifecyclehandler "gatehouse/internal/lifecycle/handler"
	"gatehouse/internal/notify"
	"gatehouse/internal/platform/config"
	"gatehouse/internal/platform/httpserver"
	"gatehouse/internal/platform/logger"
	"gatehouse/internal/platform/metrics"
	"gatehouse/internal/platform/ratelimit"
	platformredis "gatehouse/internal/platform/redis"
	"gatehouse/internal/platform/telemetry"
	"gatehouse/internal/stats"
	statshandler "gatehouse/internal/stats/handler"
	"gatehouse/internal/sweep"
	httptransport "gatehouse/internal/transport/http"
	"gatehouse/internal/visitor/store"
)

// main wires the dependency graph and owns process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup("gatehouse", cfg.OTLPEndpoint, log)

	var (
		visitStore store.Store
		auditStore audit.Store
		ledger     capacity.Ledger
		health     httptransport.HealthChecker
	)
	var rlStore ratelimit.Store = ratelimit.NewInMemoryStore()
	switch {
	case cfg.DatabaseURL != "":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		visitStore = store.NewPostgresStore(pool)
		auditStore = audit.NewPostgresStore(pool)
		ledger = capacity.NewPostgresLedger(pool, cfg.CapacityPerBucket)
		health = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		}
		log.Info("using postgres storage")
	default:
		visitStore = store.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		if cfg.RedisURL != "" {
			client, err := platformredis.New(cfg.RedisURL)
			if err != nil {
				log.Error("failed to connect to redis", "error", err)
				os.Exit(1)
			}
			defer client.Close()
			ledger = capacity.NewRedisLedger(client.Client, cfg.CapacityPerBucket)
			rlStore = ratelimit.NewRedisStore(client.Client)
			health = func() error {
				pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return client.Health(pingCtx)
			}
			log.Info("using in-memory storage with redis capacity ledger")
		} else {
			ledger = capacity.NewInMemoryLedger(cfg.CapacityPerBucket)
			log.Info("using in-memory storage")
		}
	}

	var auditOpts []audit.Option
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("failed to connect audit sink", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		auditOpts = append(auditOpts, audit.WithSink(sink))
		log.Info("audit sink enabled", "topic", cfg.KafkaTopic)
	}
	auditPub := audit.NewPublisher(auditStore, log, auditOpts...)

	var notifier notify.Notifier = notify.LogNotifier{Logger: log}
	if cfg.ResendAPIKey != "" {
		notifier = notify.NewResendNotifier(cfg.ResendAPIKey, cfg.EmailFrom)
		log.Info("email delivery enabled", "from", cfg.EmailFrom)
	}

	validator := booking.NewValidator(visitStore, cfg.CapacityPerBucket)
	jwtValidator := jwtauth.NewService(cfg.JWTSigningKey, "gatehouse")

	sweeper := sweep.New(visitStore, ledger, auditPub, m, log)
	bookingSvc := bookingservice.New(visitStore, ledger, validator, auditPub,
		notifier, credential.PayloadIssuer{}, m, log,
		bookingservice.WithMaxBulk(cfg.MaxBulk),
		bookingservice.WithSweeper(sweeper))
	lifecycleSvc := lifecycle.New(visitStore, ledger, auditPub, m, log)
	statsSvc := stats.New(visitStore, sweeper, log)
	directorySvc := directory.New()

	limiter := ratelimit.Middleware(rlStore, cfg.RateLimitPerMinute, time.Minute, log)
	router := httptransport.NewRouter(health, limiter,
		bookinghandler.New(bookingSvc, log, jwtValidator),
		lifecyclehandler.New(lifecycleSvc, log, jwtValidator),
		statshandler.New(statsSvc, log, jwtValidator),
		directoryhandler.New(directorySvc, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	worker := sweep.NewWorker(sweeper, cfg.SweepInterval, log)
	go worker.Run(ctx)

	go func() {
		log.Info("starting gatehouse", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown failed", "error", err)
	}
}
