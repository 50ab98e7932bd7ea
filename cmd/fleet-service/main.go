package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nurpe/fleetwatch/internal/analytics"
	"github.com/nurpe/fleetwatch/internal/auth"
	"github.com/nurpe/fleetwatch/internal/config"
	"github.com/nurpe/fleetwatch/internal/db"
	"github.com/nurpe/fleetwatch/internal/excel"
	httphandler "github.com/nurpe/fleetwatch/internal/http"
	"github.com/nurpe/fleetwatch/internal/http/middleware"
	"github.com/nurpe/fleetwatch/internal/live"
	"github.com/nurpe/fleetwatch/internal/logger"
	"github.com/nurpe/fleetwatch/internal/mqtt"
	"github.com/nurpe/fleetwatch/internal/pdf"
	"github.com/nurpe/fleetwatch/internal/pipeline"
	"github.com/nurpe/fleetwatch/internal/repository/memstore"
	"github.com/nurpe/fleetwatch/internal/scheduler"
	"github.com/nurpe/fleetwatch/internal/service"
	"github.com/nurpe/fleetwatch/internal/vendor"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := openStores(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}

	// every optional collaborator stays a nil interface when redis is not configured
	var (
		publisher  analytics.AlertPublisher
		deduper    analytics.AlertDeduper
		liveWriter service.LiveStateWriter
		liveReader service.LiveStateReader
		feed       httphandler.LiveFeed
	)
	if cfg.Redis.Addr != "" {
		cache, err := live.New(ctx, cfg.Redis, cfg.Analytics.DeadlineDedupTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer cache.Close()
		publisher, deduper, liveWriter, liveReader, feed = cache, cache, cache, cache, cache
		log.Info().Str("addr", cfg.Redis.Addr).Msg("live state enabled")
	}

	alerts := analytics.NewAlertRecorder(stores.Geofences, publisher, log)
	analyzers := service.NewAnalyzers(stores, alerts, cfg.Analytics, deduper)

	dispatcher := pipeline.NewDispatcher(pipeline.Options{
		Concurrency: int64(cfg.Pipeline.Concurrency),
		QueueSize:   cfg.Pipeline.QueueSize,
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		RetryBase:   cfg.Pipeline.RetryBase,
		Permanent:   service.IsPermanent,
	}, log)

	gateway := service.NewGateway(stores, analyzers.All(), dispatcher, liveWriter, log)

	scores := scheduler.NewScoreScheduler(stores.Vehicles, analyzers.Score, cfg.Analytics.ScoreInterval, log)
	scores.Start(ctx)
	// producers stop before the dispatcher is drained
	stoppers := []func(){scores.Stop}

	if cfg.Vendor.BaseURL != "" {
		poller := vendor.NewPoller(cfg.Vendor, stores.Vehicles, gateway, log)
		poller.Start(ctx)
		stoppers = append(stoppers, poller.Stop)
	}

	if cfg.MQTT.URL != "" {
		subscriber := mqtt.NewSubscriber(cfg.MQTT, gateway, log)
		if err := subscriber.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start mqtt subscriber")
		}
		stoppers = append(stoppers, subscriber.Stop)
	}

	handler := httphandler.NewHandler(httphandler.Services{
		Gateway:   gateway,
		Vehicles:  service.NewVehicleService(stores.Vehicles, analyzers.Odometer, liveReader),
		Queries:   service.NewQueryService(stores),
		Geofences: service.NewGeofenceService(stores.Geofences),
		Reports:   service.NewReportService(stores, excel.NewGenerator(), pdf.NewGenerator()),
		Feed:      feed,
	}, log)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.HTTP.CORSOrigins, log, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("db_driver", cfg.DB.Driver).Msg("starting fleet service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	for _, stopFn := range stoppers {
		stopFn()
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("analyzer queue not drained before shutdown")
	}
	log.Info().Msg("fleet service stopped")
}

func openStores(cfg *config.Config, log zerolog.Logger) (service.Stores, error) {
	if cfg.DB.Driver == "memory" {
		log.Warn().Msg("using in-memory storage; data is lost on exit")
		return service.MemoryStores(memstore.New()), nil
	}
	database, err := db.New(cfg, log)
	if err != nil {
		return service.Stores{}, err
	}
	return service.PostgresStores(database), nil
}
