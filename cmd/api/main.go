package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"vacancy-report-service/internal/api"
	"vacancy-report-service/internal/config"
	"vacancy-report-service/internal/export"
	"vacancy-report-service/internal/logger"
	"vacancy-report-service/internal/pipeline"
	"vacancy-report-service/internal/ratelimit"
	"vacancy-report-service/internal/registry"
	"vacancy-report-service/internal/sfclient"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt)
		<-ch
		cancel()
	}()

	source := sfclient.New(cfg.SourceBaseURL,
		sfclient.WithBasicAuth(cfg.SourceUsername, cfg.SourcePassword),
		sfclient.WithTimeout(cfg.SourceTimeout),
		sfclient.WithLogger(log),
	)

	jobs := registry.New()

	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		limiter = ratelimit.New(client, cfg.RateLimitCapacity, cfg.RateLimitRefill, cfg.RateLimitTTL)
	}

	var exporter *export.Exporter
	if cfg.ReportBucket != "" {
		var err error
		exporter, err = export.New(ctx, cfg.ReportBucket)
		if err != nil {
			log.Error("configure report exporter", "error", err)
			os.Exit(1)
		}
	}

	pl := pipeline.New(cfg, source, jobs, exporter, log)
	server := api.New(jobs, pl, limiter, log)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	log.Info("api listening", "port", cfg.HTTPPort)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
}
