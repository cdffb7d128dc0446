package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fuelpump/internal/config"
	"fuelpump/internal/infra"
	"fuelpump/internal/repository"
	"fuelpump/internal/router"
	"fuelpump/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	// Redis is optional: without it drafts, prices and jobs stay in process.
	var (
		rdb   *redis.Client
		cache infra.Cache
		queue worker.Queue
	)
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		cache = infra.NewRedisCache(rdb)
		queue = worker.NewRedisQueue(rdb)
	} else {
		log.Warn().Msg("REDIS_URL not set, using in-process cache and queue")
		cache = infra.NewMemoryCache(10 * time.Minute)
		queue = worker.NewMemoryQueue()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Report delivery is wired here (composition root) so the pool has the
	// mailer, push sender and subscription store at hand.
	breaker := infra.NewBreaker(infra.BreakerConfig{Name: "smtp"})
	reportCfg := worker.ReportWorkerConfig{
		ReportEmail:   cfg.ReportEmail,
		Subscriptions: repository.NewPushSubscriptionRepository(db),
		Breaker:       breaker,
		StoragePath:   cfg.ReportStoragePath,
	}
	if cfg.SMTPEnabled() {
		reportCfg.Mailer = infra.NewMailer(cfg)
	}
	if cfg.PushEnabled() {
		reportCfg.Pusher = infra.WebPushSender{}
		reportCfg.PushOptions = infra.PushOptions(cfg)
	}

	handlers := map[string]worker.JobHandler{
		worker.JobShiftReport: worker.NewReportWorker(reportCfg),
	}
	workers := worker.StartWorkerPool(ctx, queue, cfg.WorkerPoolSize, handlers)
	worker.StartRetryCron(ctx, worker.RetryCronConfig{Queue: queue, Breaker: breaker})

	r := router.New(cfg, router.Deps{
		DB:      db,
		Redis:   rdb,
		Cache:   cache,
		Reports: worker.NewDispatcher(queue),
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
		log.Info().Msgf("fuelpump backend listening on :%d", cfg.Port)
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
	workers.Wait()
	log.Info().Msg("server exited")
}
