// Package main provides the API server entry point for the job insights service.
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

	"github.com/job-insights/internal/api"
	"github.com/job-insights/internal/config"
	"github.com/job-insights/internal/ingest"
	"github.com/job-insights/internal/logging"
	"github.com/job-insights/internal/mockdata"
	"github.com/job-insights/internal/scheduler"
	"github.com/job-insights/internal/service"
	"github.com/job-insights/internal/storage"
)

func main() {
	fmt.Println("Job Insights API Server")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel, err := logging.ParseLogLevel(cfg.Logging.Level)
	if err != nil {
		log.Printf("Falling back to info logging: %v", err)
	}
	logFormat, err := logging.ParseLogFormat(cfg.Logging.Format)
	if err != nil {
		log.Printf("Falling back to JSON logging: %v", err)
	}
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  logLevel,
		"format": logFormat,
	}).Info("Structured logging initialized")

	source := buildSource(cfg)
	logger.WithField("source", source.Name()).Info("Job source configured")

	// Reports are cached in Redis when enabled, otherwise in process memory
	var reports service.ReportStore
	if cfg.Redis.Enabled {
		redis, err := storage.NewRedisCache(&cfg.Redis)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redis.Close()
		reports = storage.NewReportCache(redis, cfg.Cache.TTL)
		logger.WithFields(map[string]interface{}{
			"addr": cfg.Redis.Addr(),
			"ttl":  cfg.Cache.TTL.String(),
		}).Info("Redis report cache enabled")
	} else {
		reports = storage.NewMemoryReportCache(cfg.Cache.TTL)
		logger.WithField("ttl", cfg.Cache.TTL.String()).Info("In-memory report cache enabled")
	}

	dashboard := service.NewDashboardService(source, reports, cfg.Weights)

	// A failed first load is not fatal: the API reports 503 until a reload succeeds
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), cfg.Source.FetchTimeout+10*time.Second)
	if _, err := dashboard.Reload(logging.WithLogger(loadCtx, logger)); err != nil {
		logger.WithError(err).Warn("Initial snapshot load failed")
	}
	cancelLoad()

	var refresher *scheduler.Refresher
	if cfg.Source.RefreshSchedule != "" {
		refresher, err = scheduler.NewRefresher(cfg.Source.RefreshSchedule, cfg.Source.FetchTimeout+10*time.Second, func(ctx context.Context) error {
			_, err := dashboard.Reload(ctx)
			return err
		})
		if err != nil {
			logger.WithError(err).Fatal("Invalid refresh schedule")
		}
		refresher.Start()
	}

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	serverConfig.RateLimitRPS = cfg.RateLimit.RPS
	serverConfig.RateLimitBurst = cfg.RateLimit.Burst
	serverConfig.MaxUploadBytes = cfg.Server.MaxUploadBytes

	server := api.NewServer(serverConfig, dashboard)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if refresher != nil {
		select {
		case <-refresher.Stop().Done():
		case <-time.After(serverConfig.ShutdownTimeout):
			logger.Warn("Scheduled reload still running at shutdown")
		}
	}

	if err := server.Shutdown(context.Background()); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

// buildSource picks the job source: a CSV file wins over a URL, and with
// neither configured a deterministic mock export is generated.
func buildSource(cfg *config.Config) ingest.Source {
	switch {
	case cfg.Source.CSVPath != "":
		return ingest.NewFileSource(cfg.Source.CSVPath)
	case cfg.Source.CSVURL != "":
		return ingest.NewURLSource(cfg.Source.CSVURL, ingest.NewFetcher(cfg.Source.FetchTimeout))
	default:
		return mockdata.NewSource(cfg.Source.MockJobs, cfg.Source.MockSeed)
	}
}
