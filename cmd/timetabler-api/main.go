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

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/api/swagger"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/handler"
	internalmiddleware "github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/middleware"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/repository"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/service"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/cache"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/config"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/database"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/jobs"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/logger"
	corsmiddleware "github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/middleware/cors"
	reqidmiddleware "github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/middleware/requestid"
)

// @title Timetabler API
// @version 1.0.0
// @description Course timetabling with particle swarm optimisation.
// @BasePath /api/v1
// @schemes http

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
		logr.Sugar().Errorw("server stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	deps := map[string]handler.Pinger{"postgres": db}

	metricsSvc := service.NewMetricsService()
	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client, logr)
			deps["redis"] = handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	runRepo := repository.NewOptimizationRunRepository(db)
	optimizationSvc := service.NewOptimizationService(
		runRepo,
		repository.NewProblemRepository(db),
		cacheSvc,
		nil,
		metricsSvc,
		nil,
		logr,
		service.OptimizationConfig{
			Cognitive:     cfg.Optimizer.Cognitive,
			Social:        cfg.Optimizer.Social,
			Inertia:       cfg.Optimizer.Inertia,
			Particles:     cfg.Optimizer.Particles,
			Iterations:    cfg.Optimizer.Iterations,
			MaxIterations: cfg.Optimizer.MaxIterations,
			LocalSearch:   cfg.Optimizer.LocalSearch,
			Penalty:       cfg.Optimizer.Penalty,
			CacheTTL:      cfg.Cache.TTL,
		},
	)

	if cfg.Optimizer.Workers > 0 {
		worker := service.NewOptimizationWorker(runRepo, optimizationSvc, cfg.Optimizer.WorkerRetries, logr)
		queue := jobs.NewQueue("optimizations", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Optimizer.Workers,
			BufferSize: cfg.Optimizer.WorkerQueueLen,
			MaxRetries: cfg.Optimizer.WorkerRetries,
			RetryDelay: 2 * time.Second,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		optimizationSvc.SetQueue(queue)
		optimizationSvc.RecoverPending(ctx)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, deps)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.NewOptimizationHandler(optimizationSvc), metricsHandler)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
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

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
