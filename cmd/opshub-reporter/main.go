package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/opshub-io/opshub/pkg/access"
	"github.com/opshub-io/opshub/pkg/audit"
	"github.com/opshub-io/opshub/pkg/auth"
	"github.com/opshub-io/opshub/pkg/config"
	"github.com/opshub-io/opshub/pkg/observability"
	"github.com/opshub-io/opshub/pkg/tenants"
)

var (
	gaugeSchedule  = flag.String("gauge-schedule", "*/5 * * * *", "Cron schedule for business gauge refresh (default: every 5 minutes)")
	exportSchedule = flag.String("export-schedule", "15 0 * * *", "Cron schedule for daily audit export (default: 00:15 UTC)")
	retentionDays  = flag.Int("retention-days", 90, "Audit events older than this many days are deleted after export")
	metricsPort    = flag.String("metrics-port", "9091", "Port for the reporter's /metrics endpoint")
	runOnce        = flag.Bool("run-once", false, "Run the export and retention pass once and exit")
	exportDate     = flag.String("date", "", "Date to export (YYYY-MM-DD). If empty, exports yesterday. Only used with --run-once")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting opshub-reporter")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		logger.WithError(err).Error("Failed to ping database")
		os.Exit(1)
	}

	tenantStore := tenants.NewStore(db)
	matrixStore := access.NewMatrixStore(db)
	tokenStore := auth.NewTokenStore(db)
	auditStore := audit.NewStore(db)

	var exporter *audit.S3Exporter
	if cfg.Audit.S3ExportEnabled {
		exporter, err = audit.NewS3Exporter(ctx, cfg.Audit, auditStore)
		if err != nil {
			logger.WithError(err).Error("Failed to create S3 exporter")
			os.Exit(1)
		}
	}

	reporter := &reporter{
		logger:   logger,
		tenants:  tenantStore,
		matrix:   matrixStore,
		tokens:   tokenStore,
		audit:    auditStore,
		exporter: exporter,
	}

	if *runOnce {
		date := time.Now().UTC().AddDate(0, 0, -1)
		if *exportDate != "" {
			date, err = time.Parse("2006-01-02", *exportDate)
			if err != nil {
				logger.WithError(err).Errorf("Invalid date %q", *exportDate)
				os.Exit(1)
			}
		}
		if err := reporter.exportDay(ctx, date); err != nil {
			logger.WithError(err).Error("Export failed")
			os.Exit(1)
		}
		if err := reporter.enforceRetention(ctx, *retentionDays); err != nil {
			logger.WithError(err).Error("Retention pass failed")
			os.Exit(1)
		}
		logger.Info("Run-once pass completed")
		return
	}

	promRegistry := prometheus.NewRegistry()
	reporter.metrics = observability.NewMetrics(promRegistry)

	c := cron.New()

	if _, err := c.AddFunc(*gaugeSchedule, func() {
		defer observability.RecoverPanic(logger, "gauge refresh job")
		jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		reporter.refreshGauges(jobCtx)
	}); err != nil {
		logger.WithError(err).Error("Invalid gauge schedule")
		os.Exit(1)
	}

	if _, err := c.AddFunc(*exportSchedule, func() {
		defer observability.RecoverPanic(logger, "daily export job")
		jobCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()

		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		if err := reporter.exportDay(jobCtx, yesterday); err != nil {
			logger.WithError(err).Error("Daily export failed")
			return
		}
		if err := reporter.enforceRetention(jobCtx, *retentionDays); err != nil {
			logger.WithError(err).Error("Retention pass failed")
		}
	}); err != nil {
		logger.WithError(err).Error("Invalid export schedule")
		os.Exit(1)
	}

	// Seed the gauges immediately so the first scrape is not empty.
	reporter.refreshGauges(ctx)

	c.Start()

	metricsMux := http.NewServeMux()
	observability.RegisterMetricsEndpoint(metricsMux, promRegistry)
	metricsServer := &http.Server{
		Addr:    net.JoinHostPort("", *metricsPort),
		Handler: metricsMux,
	}
	go func() {
		logger.Infof("Metrics endpoint listening on %s", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.WithError(err).Error("Metrics server exited")
		}
	}()

	sm := observability.NewShutdownManager(logger, metricsServer, 10*time.Second)
	sm.RegisterShutdownFunc(func(context.Context) error {
		<-c.Stop().Done()
		return nil
	})
	if err := sm.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown failed")
		os.Exit(1)
	}
}

// reporter bundles the stores the scheduled jobs read from.
type reporter struct {
	logger   *observability.Logger
	metrics  *observability.Metrics
	tenants  *tenants.Store
	matrix   *access.MatrixStore
	tokens   *auth.TokenStore
	audit    *audit.Store
	exporter *audit.S3Exporter
}

// refreshGauges recomputes the business gauges from the database.
func (r *reporter) refreshGauges(ctx context.Context) {
	if total, err := r.tenants.CountTenants(ctx); err != nil {
		r.logger.WithError(err).Error("Failed to count tenants")
	} else {
		r.metrics.TenantsTotal.Set(float64(total))
	}

	if customized, err := r.matrix.CountCustomized(ctx); err != nil {
		r.logger.WithError(err).Error("Failed to count customized tenants")
	} else {
		r.metrics.TenantsCustomizedTotal.Set(float64(customized))
	}

	if active, err := r.tokens.CountActive(ctx); err != nil {
		r.logger.WithError(err).Error("Failed to count active tokens")
	} else {
		r.metrics.APITokensActive.Set(float64(active))
	}
}

// exportDay ships one UTC day of audit events to S3. A no-op when the
// export is not configured.
func (r *reporter) exportDay(ctx context.Context, date time.Time) error {
	if r.exporter == nil {
		return nil
	}

	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	key, count, err := r.exporter.ExportRange(ctx, start, end)
	if err != nil {
		return err
	}
	r.logger.Infof("Exported %d audit events to %s", count, key)
	return nil
}

// enforceRetention deletes audit events past the retention window.
func (r *reporter) enforceRetention(ctx context.Context, days int) error {
	if days <= 0 {
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	deleted, err := r.audit.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		r.logger.Infof("Deleted %d audit events older than %s", deleted, cutoff.Format("2006-01-02"))
	}
	return nil
}
