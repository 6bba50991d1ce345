package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/backend"
	"finboard/internal/cache"
	"finboard/internal/cli"
	apphttp "finboard/internal/http"
	"finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	source, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	bucketCache := cache.NewBucketCache(cfg.BucketCacheSize, cfg.BucketCacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(bucketCache)
	cacheManager.StartCleanup(cfg.BucketCacheTTL)

	svc := services.NewTimelineService(source.Backend, bucketCache, logger)

	// A failed first load leaves the server up but not ready; the refresh
	// worker keeps retrying.
	loadCtx, loadCancel := context.WithTimeout(context.Background(), time.Minute)
	if err := svc.Reload(loadCtx); err != nil {
		logger.Warn("Initial dataset load failed", log.FieldError, err, log.FieldOperation, log.OpStartup)
	}
	loadCancel()

	var consumer worker.Consumer
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		consumer = amqpClient
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}
	refresher := worker.NewRefreshWorker(svc, consumer, cfg.RefreshInterval, logger)

	srv := apphttp.NewServer(":"+cfg.Port, svc, logger, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	var wg sync.WaitGroup
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		wg.Wait()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		cacheManager.Stop()
		if err := source.Close(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := refresher.Run(ctx); err != nil {
			logger.Error("Refresh worker stopped", log.FieldError, err)
		}
	}()

	logger.Info("Starting finboard server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"amqp", cfg.AMQPEnabled(),
		"refresh_interval", cfg.RefreshInterval.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
