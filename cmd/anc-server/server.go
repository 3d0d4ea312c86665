package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/anc/internal/config"
	"github.com/ehr/anc/internal/domain/activity"
	"github.com/ehr/anc/internal/domain/broadcast"
	"github.com/ehr/anc/internal/domain/monitoring"
	"github.com/ehr/anc/internal/domain/pregnancy"
	"github.com/ehr/anc/internal/domain/triage"
	"github.com/ehr/anc/internal/platform/auth"
	"github.com/ehr/anc/internal/platform/cache"
	"github.com/ehr/anc/internal/platform/db"
	"github.com/ehr/anc/internal/platform/metrics"
	"github.com/ehr/anc/internal/platform/middleware"
	"github.com/ehr/anc/migrations"
)

// Long-running routes that must not be cut off by the request timeout.
var timeoutExempt = []string{"/api/v1/broadcast/send", "/api/v1/monitoring/report"}

// quietPaths are logged at debug level.
var quietPaths = []string{"/health", "/health/db", "/metrics"}

func runServer(cfg *config.Config) error {
	logger := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	if cfg.IsDev() {
		logger.Warn().Msg("ENV=development: requests without a token run as admin; do not expose this server")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	migrator := db.NewMigrator(pool, migrations.FS)
	if statuses, err := migrator.Status(ctx); err != nil {
		logger.Warn().Err(err).Msg("could not read migration status")
	} else if pending := countPending(statuses); pending > 0 {
		logger.Warn().Int("pending", pending).Msg("database has unapplied migrations; run `anc-server migrate up`")
	}

	kv, closeKV := newKV(ctx, cfg, logger)
	defer closeKV()

	var (
		patients = pregnancy.NewPatientRepoPG(pool)
		visits   = pregnancy.NewVisitRepoPG(pool)
		alerts   = pregnancy.NewAlertRepoPG(pool)
	)
	classifier := triage.NewClassifier(triage.DefaultCatalog())

	monitoringSvc := monitoring.NewService(patients, visits, logger,
		monitoring.WithClassifier(classifier),
		monitoring.WithCache(kv),
		monitoring.WithSummaryTTL(cfg.SummaryCacheTTL),
		monitoring.WithClinic(cfg.ClinicName),
	)
	pregnancySvc := pregnancy.NewService(patients, visits, alerts, logger,
		pregnancy.WithClassifier(classifier),
		pregnancy.WithTx(db.TxRunner(pool)),
		pregnancy.WithChecklist(pregnancy.NewChecklistRepoPG(pool)),
		pregnancy.WithChangeHook(monitoringSvc.Invalidate),
	)

	broadcastOpts := []broadcast.Option{
		broadcast.WithClassifier(classifier),
		broadcast.WithClinic(cfg.ClinicName),
	}
	if cfg.BroadcastEnabled() {
		sender := broadcast.NewGatewaySender(cfg.BroadcastGatewayURL, cfg.BroadcastGatewayToken)
		broadcastOpts = append(broadcastOpts, broadcast.WithDispatcher(broadcast.NewDispatcher(sender, cfg.BroadcastRPS, logger)))
		logger.Info().Str("gateway", cfg.BroadcastGatewayURL).Float64("rps", cfg.BroadcastRPS).Msg("broadcast gateway enabled")
	} else {
		logger.Info().Msg("no broadcast gateway token; broadcasts are preview-only")
	}
	broadcastSvc := broadcast.NewService(patients, visits, broadcastOpts...)

	activitySvc := activity.NewService(activity.NewRepoPG(pool), logger)
	pruneCtx, stopPrune := context.WithCancel(ctx)
	defer stopPrune()
	go pruneActivity(pruneCtx, activitySvc, time.Duration(cfg.ActivityRetentionDays)*24*time.Hour, logger)

	e := newEcho(cfg, logger, activitySvc)
	registerInfra(e, pool, migrator)

	apiV1 := e.Group("/api/v1")
	pregnancy.NewHandler(pregnancySvc).RegisterRoutes(apiV1)
	monitoring.NewHandler(monitoringSvc).RegisterRoutes(apiV1)
	broadcast.NewHandler(broadcastSvc).RegisterRoutes(apiV1)
	activity.NewHandler(activitySvc).RegisterRoutes(apiV1)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newEcho builds the server with the global middleware chain. The Logger
// renders handler errors, so everything inside it sees the raw error.
func newEcho(cfg *config.Config, logger zerolog.Logger, recorder middleware.ActivityRecorder) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger, quietPaths...))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, echo.HeaderContentDisposition},
	}))
	e.Use(metrics.Middleware())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, timeoutExempt...))

	rl := middleware.DefaultRateLimitConfig()
	rl.RequestsPerSecond = cfg.RateLimitRPS
	rl.BurstSize = cfg.RateLimitBurst
	rl.Skipper = auth.AuthSkipper
	e.Use(middleware.RateLimit(rl))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(jwtConfig(cfg)))
	}

	e.Use(middleware.Activity(logger, recorder, cfg.ActivityLogReads))
	return e
}

func registerInfra(e *echo.Echo, pool *pgxpool.Pool, migrator *db.Migrator) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool, migrator))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	return auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
		Skipper:    auth.AuthSkipper,
	}
}

// newKV returns Redis when REDIS_URL is set and reachable, otherwise an
// in-process cache.
func newKV(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.KV, func()) {
	if cfg.RedisURL == "" {
		return cache.NewMemoryKV(), func() {}
	}
	client, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid REDIS_URL, using in-memory cache")
		return cache.NewMemoryKV(), func() {}
	}
	kv := cache.NewRedisKV(client, "anc:")
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := kv.Ping(pingCtx); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, using in-memory cache")
		_ = client.Close()
		return cache.NewMemoryKV(), func() {}
	}
	logger.Info().Msg("connected to redis")
	return kv, func() { _ = client.Close() }
}

func countPending(statuses []db.MigrationStatus) int {
	n := 0
	for _, s := range statuses {
		if !s.Applied {
			n++
		}
	}
	return n
}

func pruneActivity(ctx context.Context, svc *activity.Service, retention time.Duration, logger zerolog.Logger) {
	if retention <= 0 {
		return
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		if _, err := svc.Prune(ctx, retention); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Msg("activity prune failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
