package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/notification-bridge/internal/api"
	"github.com/notifyhub/notification-bridge/internal/api/handler"
	"github.com/notifyhub/notification-bridge/internal/bridge"
	"github.com/notifyhub/notification-bridge/internal/channels"
	"github.com/notifyhub/notification-bridge/internal/config"
	"github.com/notifyhub/notification-bridge/internal/db"
	"github.com/notifyhub/notification-bridge/internal/domain"
	"github.com/notifyhub/notification-bridge/internal/host"
	"github.com/notifyhub/notification-bridge/internal/metrics"
	"github.com/notifyhub/notification-bridge/internal/platform"
	"github.com/notifyhub/notification-bridge/internal/queue"
	"github.com/notifyhub/notification-bridge/internal/ratelimiter"
	"github.com/notifyhub/notification-bridge/internal/registry"
	"github.com/notifyhub/notification-bridge/internal/store"
	"github.com/notifyhub/notification-bridge/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()
	ready := map[string]handler.Pinger{}

	// ---- database ----
	var pool *pgxpool.Pool
	if cfg.NeedsPostgres() {
		pool, err = db.Connect(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		logger.Info("database migrations applied")
		ready["postgres"] = pool
	}

	// ---- persisted key-value store ----
	var kv store.Store
	switch cfg.StoreBackend {
	case "postgres":
		kv = store.NewPostgres(pool)
	case "redis":
		rs, err := store.NewRedisFromURL(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rs.Close() //nolint:errcheck
		kv = rs
	default:
		logger.Warn("using in-memory store: registry and channels are lost on restart")
		kv = store.NewMemory()
	}
	ready["store"] = kv

	// ---- host services ----
	var (
		alarmSvc host.AlarmService
		alarmSrc host.AlarmSource
	)
	switch cfg.AlarmBackend {
	case "postgres":
		pa := host.NewPgAlarms(pool)
		alarmSvc, alarmSrc = pa, pa
	default:
		ma := host.NewMemoryAlarms()
		alarmSvc, alarmSrc = ma, ma
	}

	var renderer host.Renderer
	switch cfg.Renderer {
	case "webhook":
		renderer = host.NewWebhookRenderer(cfg.RendererURL, cfg.RendererTimeout)
	case "amqp":
		ar, err := host.NewAMQPRenderer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			logger.Fatal("failed to connect to amqp", zap.Error(err))
		}
		defer ar.Close() //nolint:errcheck
		renderer = ar
	default:
		renderer = host.NewMemoryRenderer()
	}

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	deps := platform.Deps{
		Renderer:  renderer,
		Resources: host.NewStaticResources(cfg.IconResources, cfg.DefaultIcon),
		Compat:    channels.NewCompat(kv),
		Logger:    logger,
	}
	if cfg.APILevel >= platform.LevelOreo {
		deps.NativeChannels = host.NewMemoryChannels()
	}
	variant := platform.Select(cfg.APILevel, deps)

	b := bridge.New(bridge.Options{
		Registry: registry.New(kv),
		Alarms:   alarmSvc,
		Platform: variant,
		Renderer: renderer,
		Logger:   logger.With(zap.String("variant", variant.Name())),
		OnSent: func(_ context.Context, req domain.Request) error {
			logger.Info("notification sent",
				zap.Int("notification_id", req.ID), zap.String("channel_id", req.ChannelID))
			return nil
		},
		Hooks:               m.BridgeHooks(),
		APILevel:            cfg.APILevel,
		RescheduleOnRestart: cfg.RescheduleOnRestart,
		AlarmCeiling:        cfg.AlarmCeiling,
		EnforceCeiling:      cfg.EnforceAlarmCeiling,
	})

	restored, err := b.Restore(ctx)
	if err != nil {
		logger.Fatal("failed to restore scheduled notifications", zap.Error(err))
	}
	logger.Info("bridge ready",
		zap.String("variant", variant.Name()),
		zap.Int("api_level", cfg.APILevel),
		zap.Int("restored", len(restored)))

	// ---- workers ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	q := queue.New(cfg.DeliveryQueueSize)
	onDue, onFailed := m.WorkerHooks()
	deliveryPool := worker.NewPool(cfg.DeliveryWorkers, q, b, ratelimiter.New(cfg.DeliveryRate), logger,
		worker.MetricHooks{OnDue: onDue, OnFailed: onFailed})
	deliveryPool.Start(workerCtx)

	alarmW := worker.NewAlarmWorker(alarmSrc, q, cfg.AlarmPollInterval, logger, onDue)
	go alarmW.Run(workerCtx)

	// ---- HTTP server ----
	router := api.NewRouter(b, q, ready, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop polling alarms and pulling deliveries.
	cancelWorkers()

	// 3. Let in-flight deliveries finish.
	deliveryPool.Wait()

	logger.Info("server stopped cleanly")
}
