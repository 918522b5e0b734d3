package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/cohorthq/cohort/pkg/api"
	"github.com/cohorthq/cohort/pkg/audit"
	"github.com/cohorthq/cohort/pkg/auth"
	"github.com/cohorthq/cohort/pkg/config"
	"github.com/cohorthq/cohort/pkg/crm"
	"github.com/cohorthq/cohort/pkg/httputil"
	"github.com/cohorthq/cohort/pkg/middleware"
	"github.com/cohorthq/cohort/pkg/observability"
	"github.com/cohorthq/cohort/pkg/orgs"
	"github.com/cohorthq/cohort/pkg/storage/postgres"
	"github.com/cohorthq/cohort/pkg/tenant"
)

func main() {
	startupLog := logrus.New()
	startupLog.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		startupLog.WithError(err).Fatal("failed to load configuration")
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		startupLog.WithError(err).Fatal("failed to connect to postgres")
	}
	defer db.Close()

	if err := tenant.RunMigrations(ctx, db); err != nil {
		startupLog.WithError(err).Fatal("failed to run migrations")
	}
	logger.Info("migrations applied")

	redisClient, err := postgres.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		startupLog.WithError(err).Fatal("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		logger.Info("redis cache enabled")
	}

	// Audit trail: database always, file mirror when configured
	auditor, err := buildAuditor(db, cfg.Audit.FilePath)
	if err != nil {
		startupLog.WithError(err).Fatal("failed to initialize audit trail")
	}
	defer auditor.Close()

	var providers *observability.OTelProviders
	if cfg.Observability.OTelEnabled {
		providers, err = observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			startupLog.WithError(err).Fatal("failed to initialize opentelemetry")
		}
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	orgService := orgs.NewPostgresService(db, &countingAuditor{inner: auditor, metrics: metrics})
	resolver := tenant.NewResolver(tenant.NewSessionStore(db))
	companies := crm.NewCachedStore(crm.NewStore(db), redisClient, cfg.Redis.CacheTTL, metrics)
	tokenManager := auth.NewTokenManager(db)

	var oidcVerifier *auth.OIDCVerifier
	if cfg.Auth.OIDCIssuerURL != "" {
		oidcVerifier, err = auth.NewOIDCVerifier(ctx, db, &auth.OIDCConfig{
			IssuerURL: cfg.Auth.OIDCIssuerURL,
			ClientID:  cfg.Auth.OIDCClientID,
		})
		if err != nil {
			startupLog.WithError(err).Fatal("failed to initialize oidc verifier")
		}
		logger.WithField("issuer", cfg.Auth.OIDCIssuerURL).Info("oidc verification enabled")
	}

	handlers := api.NewHandlers(orgService, resolver, companies, tokenManager, metrics, cfg.Server.CookieSecure)
	router := api.NewRouter(handlers, api.RouterConfig{
		Auth:   middleware.NewAuthMiddleware(tokenManager, oidcVerifier),
		Tenant: middleware.NewTenantMiddleware(resolver, metrics, cfg.Server.CookieSecure),
		Orgs:   orgService,
		Base: []func(http.Handler) http.Handler{
			httputil.RequestIDMiddleware,
			httputil.LoggingMiddleware(logger),
			observability.HTTPMetricsMiddleware(metrics),
			httputil.RecoveryMiddleware,
		},
	})

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(router, "cohortd"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	// Pool gauges and a hot-reload watcher run alongside the listeners
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				metrics.ObserveDBStats(db.Stats())
			}
		}
	})

	if path := os.Getenv("COHORT_CONFIG_FILE"); path != "" {
		group.Go(func() error {
			err := config.Watch(path, groupCtx.Done(), func(next *config.Config) {
				logger.WithField("log_level", next.Observability.LogLevel.String()).
					Info("configuration file reloaded")
			}, func(err error) {
				logger.WithError(err).Warn("configuration reload failed")
			})
			if err != nil {
				// A broken watcher never takes the server down
				logger.WithError(err).Warn("configuration watch disabled")
			}
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down")
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("api server shutdown failed")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("health server shutdown failed")
		}
		if providers != nil {
			if err := observability.ShutdownOTel(shutdownCtx, providers, logger); err != nil {
				logger.WithError(err).Error("opentelemetry shutdown failed")
			}
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		startupLog.WithError(err).Fatal("server exited")
	}
	logger.Info("shutdown complete")
}

// countingAuditor counts failed audit writes without changing the
// best-effort contract.
type countingAuditor struct {
	inner   audit.Logger
	metrics *observability.Metrics
}

func (c *countingAuditor) Log(ctx context.Context, event *audit.Event) error {
	err := c.inner.Log(ctx, event)
	if err != nil {
		c.metrics.AuditWritesFailed.Inc()
	}
	return err
}

func (c *countingAuditor) Close() error { return c.inner.Close() }

func buildAuditor(db *sql.DB, filePath string) (audit.Logger, error) {
	dbLogger, err := audit.NewDBLogger(db)
	if err != nil {
		return nil, err
	}
	if filePath == "" {
		return dbLogger, nil
	}
	fileLogger, err := audit.NewFileLogger(filePath)
	if err != nil {
		dbLogger.Close()
		return nil, err
	}
	return audit.NewMultiLogger(dbLogger, fileLogger), nil
}
