package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/opshub-io/opshub/pkg/access"
	"github.com/opshub-io/opshub/pkg/api"
	"github.com/opshub-io/opshub/pkg/audit"
	"github.com/opshub-io/opshub/pkg/auth"
	"github.com/opshub-io/opshub/pkg/config"
	"github.com/opshub-io/opshub/pkg/observability"
	"github.com/opshub-io/opshub/pkg/registry"
	"github.com/opshub-io/opshub/pkg/tenants"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting opshub")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	db, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	if err := runMigrations(ctx, db); err != nil {
		logger.WithError(err).Error("Failed to run migrations")
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			MaxRetries: cfg.Redis.MaxRetries,
			PoolSize:   cfg.Redis.PoolSize,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			// The cache degrades to direct resolution, so a dead Redis
			// delays startup decisions but does not block them.
			logger.WithError(err).Warn("Redis unreachable at startup")
		}
		cancel()
		defer redisClient.Close()
	}

	catalog, err := registry.LoadManifest(cfg.Registry.ManifestPath)
	if err != nil {
		logger.WithError(err).Errorf("Failed to load module manifest from %s", cfg.Registry.ManifestPath)
		os.Exit(1)
	}
	reg := registry.New(catalog)
	logger.Infof("Loaded module manifest: %d modules", len(reg.Modules()))

	promRegistry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promRegistry)

	tenantStore := tenants.NewStore(db)
	matrixStore := access.NewMatrixStore(db)
	overrideStore := access.NewOverrideStore(db)
	enablement := access.NewEnablementResolver(tenantStore, reg, logger, metrics)
	resolver := access.NewResolver(enablement, matrixStore, overrideStore, logger, metrics)

	var service access.Service = resolver
	var cached *access.CachedService
	if cfg.Cache.Enabled && redisClient != nil {
		cached = access.NewCachedService(resolver, redisClient, logger, metrics).WithTTL(cfg.Cache.TTL)
		service = cached
		logger.Infof("Resolution cache enabled, TTL %s", cfg.Cache.TTL)
	}

	tokenManager := auth.NewTokenManager(auth.NewTokenStore(db))

	var auditRecorder *audit.Recorder
	var auditStore *audit.Store
	var auditSink audit.Logger
	if cfg.Audit.Enabled {
		auditStore = audit.NewStore(db)
		dbLogger, err := audit.NewDBLogger(auditStore)
		if err != nil {
			logger.WithError(err).Error("Failed to create audit logger")
			os.Exit(1)
		}
		auditSink = dbLogger
		if cfg.Audit.LogPath != "" {
			fileLogger, err := audit.NewFileLogger(cfg.Audit.LogPath)
			if err != nil {
				logger.WithError(err).Errorf("Failed to open audit log file %s", cfg.Audit.LogPath)
				os.Exit(1)
			}
			auditSink = audit.NewMultiLogger(dbLogger, fileLogger)
		}
		auditRecorder = audit.NewRecorder(auditSink, logger)
	}

	server := api.NewServer(api.Config{
		Registry:      reg,
		Tenants:       tenantStore,
		Matrix:        matrixStore,
		Overrides:     overrideStore,
		Service:       service,
		Cache:         cached,
		Tokens:        tokenManager,
		AuditRecorder: auditRecorder,
		AuditStore:    auditStore,
		Redis:         redisClient,
		Logger:        logger,
		Metrics:       metrics,
	})

	var handler http.Handler = server
	if providers != nil {
		otelMetrics, err := observability.NewOTelMetrics()
		if err != nil {
			logger.WithError(err).Error("Failed to create OTel metrics")
			os.Exit(1)
		}
		handler = otelMetrics.HTTPMiddleware()(handler)
		handler = otelhttp.NewHandler(handler, "opshub.api")
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(db, redisClient)
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, promRegistry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Registry.Watch {
		watcher := registry.NewWatcher(cfg.Registry.ManifestPath, reg, logger)
		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		defer observability.RecoverPanic(logger, "db stats collector")
		collectDBStats(gctx, db, metrics)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("API server shutdown failed")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Health server shutdown failed")
		}
		if auditSink != nil {
			if err := auditSink.Close(); err != nil {
				logger.WithError(err).Error("Failed to close audit sink")
			}
		}
		if providers != nil {
			if err := observability.ShutdownOTel(shutdownCtx, providers, logger); err != nil {
				logger.WithError(err).Error("OpenTelemetry shutdown failed")
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// openDatabase connects to PostgreSQL and applies the pool settings.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *observability.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Infof("Connected to database (max open %d, max idle %d)", cfg.MaxOpenConns, cfg.MaxIdleConns)
	return db, nil
}

// runMigrations applies every package's migrations in dependency order.
func runMigrations(ctx context.Context, db *sql.DB) error {
	if err := tenants.RunMigrations(ctx, db); err != nil {
		return err
	}
	if err := access.RunMigrations(ctx, db); err != nil {
		return err
	}
	if err := auth.RunMigrations(ctx, db); err != nil {
		return err
	}
	return audit.RunMigrations(ctx, db)
}

// collectDBStats copies connection pool stats onto the gauges until the
// context is cancelled.
func collectDBStats(ctx context.Context, db *sql.DB, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			metrics.CollectDBStats(stats.OpenConnections, stats.Idle, stats.WaitCount, stats.WaitDuration)
		}
	}
}
