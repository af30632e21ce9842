package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"progress-engine/catalog"
	"progress-engine/handlers"
	"progress-engine/middleware"
	"progress-engine/repos"
	"progress-engine/services"
	"progress-engine/utils"
	"progress-engine/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logger, err := utils.NewLogger(cfg.AppEnv)
	if err != nil {
		log.Fatal("failed to build logger:", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	if err := repos.AutoMigrate(db); err != nil {
		logger.Fatal("failed to migrate database", "error", err)
	}
	store := repos.NewGormStore(db, logger)

	var locker utils.Locker = utils.NewMemoryLocker()
	if cfg.RedisAddr != "" {
		redisLocker, err := utils.NewRedisLocker(cfg.RedisAddr, cfg.LockTTL)
		if err != nil {
			logger.Fatal("failed to connect to redis", "error", err)
		}
		defer redisLocker.Close()
		locker = redisLocker
		logger.Info("using redis completion locks", "addr", cfg.RedisAddr)
	}

	progressionService := services.NewProgressionService(store, catalog.Default(), locker, logger)
	progressionService.Timeout = cfg.StoreTimeout

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := services.RegisterMetrics(reg); err != nil {
		logger.Fatal("failed to register service metrics", "error", err)
	}
	if err := middleware.RegisterMetrics(reg); err != nil {
		logger.Fatal("failed to register http metrics", "error", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "progress-engine",
		BodyLimit:    64 * 1024,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID, Retry-After",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	app.Use(middleware.MonitorMiddleware())

	// Only Gateway requests allowed, except probes
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken, logger, "/healthz", "/metrics"))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.SetupProgressionRoutes(app, progressionService)
	handlers.SetupCatalogRoutes(app, progressionService)

	if cfg.Snapshot.Enabled() {
		objects, err := utils.NewObjectStore(ctx, cfg.Snapshot)
		if err != nil {
			logger.Fatal("failed to initialize snapshot bucket", "error", err)
		}
		snapshots := workers.NewSnapshotWorker(store, objects, cfg.Snapshot.Interval, logger)
		if err := snapshots.Start(ctx); err != nil {
			logger.Fatal("failed to start snapshot worker", "error", err)
		}
		defer snapshots.Stop()
		logger.Info("snapshot worker running", "bucket", cfg.Snapshot.Bucket, "interval", cfg.Snapshot.Interval.String())
	}

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	logger.Info("server running", "port", cfg.Port, "origins", cfg.AllowedOrigins)

	<-ctx.Done()
	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
}
