package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	redis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	httpadapter "github.com/couchcryptid/quake-monitor-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/quake-monitor-service/internal/adapter/kafka"
	"github.com/couchcryptid/quake-monitor-service/internal/adapter/mapbox"
	"github.com/couchcryptid/quake-monitor-service/internal/adapter/prefs"
	"github.com/couchcryptid/quake-monitor-service/internal/adapter/usgs"
	"github.com/couchcryptid/quake-monitor-service/internal/config"
	"github.com/couchcryptid/quake-monitor-service/internal/domain"
	"github.com/couchcryptid/quake-monitor-service/internal/monitor"
	"github.com/couchcryptid/quake-monitor-service/internal/notify"
	"github.com/couchcryptid/quake-monitor-service/internal/observability"
	"github.com/couchcryptid/quake-monitor-service/internal/scheduler"
	"github.com/couchcryptid/quake-monitor-service/internal/view/markers"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll the feed and serve the monitor API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	permission, err := notify.ParsePermission(cfg.NotificationPermission)
	if err != nil {
		return err
	}

	var (
		store    notify.PreferenceStore
		checkers []sharedobs.ReadinessChecker
	)
	switch cfg.PrefsBackend {
	case config.PrefsBackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer func() { _ = client.Close() }()
		rs := prefs.NewRedisStore(client, cfg.RedisKeyPrefix)
		store = rs
		checkers = append(checkers, rs)
		logger.Info("preferences stored in redis", "addr", cfg.RedisAddr)
	default:
		store = prefs.NewFileStore(cfg.PrefsPath)
		logger.Info("preferences stored on disk", "path", cfg.PrefsPath)
	}

	center := notify.NewCenter(nil)
	sinks := []notify.Sink{center}
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewAlertWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		sinks = append(sinks, writer)
		logger.Info("kafka alert fan-out enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAlertTopic)
	}

	notifier := notify.New(store, permission, sinks, metrics, logger)
	if err := notifier.Load(ctx); err != nil {
		logger.Warn("load notification preference failed", "error", err)
	}

	feed := usgs.NewClient(cfg.FeedBaseURL, cfg.FeedTimeout, newGeocoder(cfg, metrics, logger), metrics, logger)
	layer := markers.NewLayer()
	mon := monitor.New(layer, notifier, center, metrics, logger)
	sched := scheduler.New(feed, mon, cfg.RefreshInterval, cfg.TimeRange, metrics, logger)

	api := httpadapter.API{Monitor: mon, Scheduler: sched, Notifier: notifier, Alerts: center, Map: layer}
	srv := httpadapter.NewServer(cfg.HTTPAddr, api, httpadapter.AllReady(append(checkers, mon)...), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func newGeocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Geocoder {
	if !cfg.MapboxEnabled {
		logger.Info("mapbox geocoding disabled")
		return nil
	}
	client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
	logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	return mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
}
