package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medbook/config"
	_ "medbook/docs"
	"medbook/internal/lock"
	"medbook/internal/repository"
	"medbook/internal/service"
	"medbook/internal/storage"
	"medbook/internal/transport/rest"
	"medbook/internal/transport/websocket"
	"medbook/internal/worker"
	"medbook/migrations"
	"medbook/pkg/auth"
	"medbook/pkg/database"
	"medbook/pkg/logger"
	"medbook/pkg/validator"
)

// @title Medbook API
// @version 1.0
// @description Doctor availability and appointment booking

// @BasePath /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(ctx, cfg.Postgres, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	log.Info("running database migrations")
	if err := database.RunMigrations(ctx, db, migrations.FS, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	checks := map[string]rest.HealthCheck{"postgres": db.Ping}

	var locker lock.Locker
	if cfg.Redis.Addr != "" {
		rdb, err := lock.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, cfg.Booking.LockTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info("booking lock backed by redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		locker = lock.NewLocalLocker(cfg.Booking.LockTTL)
		log.Warn("redis not configured, booking lock is local to this instance")
	}

	var invoices storage.InvoiceStorage
	if cfg.S3.Endpoint != "" {
		s3Storage, err := storage.NewS3Storage(ctx, cfg.S3, log)
		if err != nil {
			log.Fatal("failed to initialise invoice storage", zap.Error(err))
		}
		invoices = s3Storage
		log.Info("invoice storage ready", zap.String("endpoint", cfg.S3.Endpoint))
	} else {
		log.Warn("S3 not configured, bookings will not carry invoices")
	}

	tokens, err := auth.NewTokenManager(cfg.JWT.SigningKey, cfg.JWT.AccessTokenTTL)
	if err != nil {
		log.Fatal("invalid jwt configuration", zap.Error(err))
	}

	if err := validator.RegisterBindings(); err != nil {
		log.Fatal("failed to register validators", zap.Error(err))
	}

	hub := websocket.NewSlotHub(log)
	go hub.Run(ctx)

	services := service.NewServices(service.Deps{
		Repos:    repository.NewRepositories(db),
		Logger:   log,
		Config:   cfg,
		Locker:   locker,
		Invoices: invoices,
		Notifier: hub,
	})

	cleanup, err := worker.NewCleanup(cfg.Cleanup, cfg.Booking.Location, services.Schedule, log)
	if err != nil {
		log.Fatal("failed to schedule cleanup", zap.Error(err))
	}
	cleanup.Start()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handler := rest.NewHandler(rest.Deps{
		Services:   services,
		Logger:     log,
		Config:     cfg,
		Tokens:     tokens,
		SlotStream: hub.HandleWebSocket,
		Checks:     checks,
	})
	handler.InitRoutes(router)

	srv := &http.Server{
		Addr:           ":" + cfg.HTTP.Port,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderMB << 20,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	log.Info("server started", zap.String("addr", srv.Addr), zap.String("version", cfg.Version))

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	cleanup.Stop(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return
	}

	log.Info("server stopped")
}
