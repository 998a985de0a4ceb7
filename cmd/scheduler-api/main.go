package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/camp-autoscheduler/api/swagger"
	"github.com/noah-isme/camp-autoscheduler/internal/handler"
	"github.com/noah-isme/camp-autoscheduler/internal/repository"
	"github.com/noah-isme/camp-autoscheduler/internal/service"
	"github.com/noah-isme/camp-autoscheduler/pkg/cache"
	"github.com/noah-isme/camp-autoscheduler/pkg/config"
	"github.com/noah-isme/camp-autoscheduler/pkg/database"
	"github.com/noah-isme/camp-autoscheduler/pkg/jobs"
	"github.com/noah-isme/camp-autoscheduler/pkg/logger"
)

// @title Camp Program AutoScheduler API
// @version 1.0.0
// @description Computes, validates and applies camp program schedules.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	checks := map[string]handler.Pinger{"postgres": db}

	var redisClient *redis.Client
	if cfg.Scheduler.ProposalCache == config.ProposalCacheRedis {
		if redisClient, err = cache.NewRedis(ctx, cfg.Redis); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	metrics := service.NewMetricsService()

	var store service.ProposalStore = service.NewMemoryProposalStore()
	if redisClient != nil {
		cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Scheduler.ProposalTTL, logr, true)
		store = service.NewCacheProposalStore(cacheSvc)
	}

	queue := jobs.NewQueue("notifications", jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.Buffer,
		MaxRetries: cfg.Notifications.Retries,
		Logger:     logr,
	})
	dispatcher := service.NewNotificationDispatcher(queue, service.NewLogNotifier(logr), logr)
	queue.Start(ctx)
	defer queue.Stop()

	slots := repository.NewEventSlotRepository(db)
	autoschedule := service.NewAutoScheduleService(
		repository.NewEventTypeRepository(db),
		repository.NewEventSessionRepository(db),
		repository.NewEventLocationRepository(db),
		repository.NewEventRepository(db),
		repository.NewSpeakerRepository(db),
		slots,
		db,
		store,
		dispatcher,
		metrics,
		nil,
		validator.New(),
		logr,
		service.AutoScheduleConfig{
			Enabled:      cfg.Scheduler.Enabled,
			ProposalTTL:  cfg.Scheduler.ProposalTTL,
			SolveTimeout: cfg.Scheduler.SolveTimeout,
			MaxNodes:     cfg.Scheduler.MaxNodes,
			AllowPartial: cfg.Scheduler.AllowPartial,
		},
	)

	router := newRouter(cfg, logr, routeDeps{
		autoschedule: handler.NewAutoScheduleHandler(autoschedule),
		metrics:      handler.NewMetricsHandler(metrics, checks),
		metricsSvc:   metrics,
		tokens:       service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := queue.Drain(shutdownCtx); err != nil {
		logr.Warn("notification queue not drained", zap.Error(err))
	}
	return nil
}
