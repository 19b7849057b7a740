package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bancas/internal/config"
	"bancas/internal/infra"
	"bancas/internal/middleware"
	"bancas/internal/repository"
	"bancas/internal/router"
	"bancas/internal/service"
	"bancas/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	// Money goes over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Per-ticket payment lock: Redis when several replicas share the
	// database, in-process otherwise.
	var locker infra.TicketLocker = infra.NewLocalLocker()
	if cfg.LockBackend == "redis" {
		locker = infra.NewRedisLocker(rdb, cfg.LockTTL())
	}

	eventsCB := infra.NewCircuitBreaker(infra.DefaultBreakerConfig())
	dispatcher := worker.NewDispatcher(worker.NewRedisQueue(rdb), eventsCB)

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	handlers := worker.WorkerHandlers{
		worker.JobPagoEvento: worker.NewAuditWorker(repository.NewEventoRepository(db)),
	}
	worker.StartWorkerPool(ctx, rdb, handlers, cfg.WorkerPoolSize)

	sorteoSvc := service.NewSorteoService(repository.NewSorteoRepository(db), repository.NewEvaluacionRepository(db))
	if _, err := worker.StartSorteoCron(ctx, cfg.SorteoCloseSchedule, sorteoSvc); err != nil {
		log.Fatal().Err(err).Msg("failed to start sorteo cron")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	limiter.StartPurge(10*time.Minute, ctx.Done())

	r := router.New(router.Deps{
		Config:     cfg,
		DB:         db,
		Redis:      rdb,
		Locker:     locker,
		Dispatcher: dispatcher,
		EventsCB:   eventsCB,
		Sorteos:    sorteoSvc,
		Limiter:    limiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().
			Str("lock_backend", cfg.LockBackend).
			Str("timezone", cfg.Location().String()).
			Msgf("bancas backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	cancel()
	log.Info().Msg("server exited")
}
