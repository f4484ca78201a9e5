// fulfillmentd receives payment provider webhooks and turns paid checkout
// sessions into purchased shipping labels. It exposes the webhook endpoint,
// an order lookup endpoint and prometheus metrics, and runs the ledger
// purge, outbox dispatch and reconciliation sweeps on timers.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/Elanstech/barberworld-fulfillment/core"
	"github.com/Elanstech/barberworld-fulfillment/fulfillment"
	fulfillmentmigrations "github.com/Elanstech/barberworld-fulfillment/migrations"
	"github.com/Elanstech/barberworld-fulfillment/notify"
	"github.com/Elanstech/barberworld-fulfillment/schedule"
	sqlstore "github.com/Elanstech/barberworld-fulfillment/store/sql"
	"github.com/Elanstech/barberworld-fulfillment/webhooks"
)

const (
	maxWebhookBodyBytes = 1 << 20

	purgeInterval     = time.Hour
	dispatchInterval  = 30 * time.Second
	reconcileInterval = 5 * time.Minute
)

func main() {
	_, logger := glog.Resolve("fulfillmentd", nil, nil)
	logger = glog.Ensure(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := newPrometheusRecorder(registry)

	options := []fulfillment.Option{
		fulfillment.WithLogger(logger),
		fulfillment.WithMetricsRecorder(recorder),
		fulfillment.WithConfigProvider(core.NewCfgxConfigProvider(envRawConfigLoader{})),
	}

	databaseURL := getEnv("DATABASE_URL", "")
	var client *persistence.Client
	if databaseURL != "" {
		var err error
		client, err = openDatabase(databaseURL)
		if err != nil {
			logger.Error("database setup failed", "error", err)
			os.Exit(1)
		}
		defer func() { _ = client.Close() }()

		factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
		if err != nil {
			logger.Error("store setup failed", "error", err)
			os.Exit(1)
		}
		cacheService, err := repositorycache.NewCacheService(repositorycache.DefaultConfig())
		if err != nil {
			logger.Error("cache setup failed", "error", err)
			os.Exit(1)
		}
		cachedStore, err := sqlstore.NewCachedFulfillmentStore(factory.FulfillmentStore(), cacheService)
		if err != nil {
			logger.Error("cached store setup failed", "error", err)
			os.Exit(1)
		}
		options = append(options,
			fulfillment.WithLedger(factory.DeliveryLedger()),
			fulfillment.WithFulfillmentStore(cachedStore),
			fulfillment.WithOutboxStore(factory.OutboxStore()),
		)
	} else {
		logger.Info("DATABASE_URL is not set, using in-memory stores")
	}

	channels := notify.NewDefaultRegistry(logger)
	notifier, err := channels.Build(getEnv("NOTIFY_CHANNEL", notify.KindLog), map[string]any{
		"url":            getEnv("NOTIFY_WEBHOOK_URL", ""),
		"signing_secret": getEnv("NOTIFY_SIGNING_SECRET", ""),
	})
	if err != nil {
		logger.Error("notification channel setup failed", "error", err)
		os.Exit(1)
	}
	options = append(options, fulfillment.WithNotifier(notifier))

	pipeline, err := fulfillment.NewPipeline(core.Config{}, options...)
	if err != nil {
		logger.Error("pipeline setup failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler, err := schedule.NewScheduler(logger,
		schedule.Task{
			Name:     "ledger_purge",
			Interval: purgeInterval,
			Run:      pipeline.PurgeLedger,
		},
		schedule.Task{
			Name:     "outbox_dispatch",
			Interval: dispatchInterval,
			Run: func(ctx context.Context) (int, error) {
				return pipeline.DispatchNotifications(ctx, 0)
			},
		},
		schedule.Task{
			Name:     "order_reconcile",
			Interval: reconcileInterval,
			Run: func(ctx context.Context) (int, error) {
				return pipeline.ReconcileUnlabeled(ctx, 0)
			},
		},
	)
	if err != nil {
		logger.Error("scheduler setup failed", "error", err)
		os.Exit(1)
	}
	scheduler.Start(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", webhookHandler(pipeline, logger))
	mux.HandleFunc("/orders/", orderHandler(pipeline))
	mux.HandleFunc("/sweeps", sweepsHandler(scheduler))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         getEnv("HTTP_ADDR", ":8080"),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func openDatabase(databaseURL string) (*persistence.Client, error) {
	driver := "sqlite3"
	dialect := schema.Dialect(sqlitedialect.New())
	migrationDialect := fulfillmentmigrations.DialectSQLite
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		driver = "postgres"
		dialect = pgdialect.New()
		migrationDialect = fulfillmentmigrations.DialectPostgres
	}

	sqlDB, err := sql.Open(driver, databaseURL)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite3" {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{driver: driver, server: databaseURL}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	ctx := context.Background()
	_, err = fulfillmentmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != migrationDialect {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, fulfillmentmigrations.WithValidationTargets(migrationDialect))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func sweepsHandler(scheduler *schedule.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(scheduler.Snapshot())
	}
}

func webhookHandler(pipeline *fulfillment.Pipeline, logger core.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes+1))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		if len(body) > maxWebhookBodyBytes {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}

		result, err := pipeline.HandleEvent(r.Context(), body, r.Header.Get(webhooks.SignatureHeader))
		if err != nil {
			status := result.StatusCode
			if status == 0 {
				status = http.StatusInternalServerError
				var rich *goerrors.Error
				if goerrors.As(err, &rich) && rich.Code != 0 {
					status = rich.Code
				}
			}
			logger.Error("webhook rejected", "status", status, "error", err)
			http.Error(w, "webhook rejected", status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]bool{"received": true})
	}
}

func orderHandler(pipeline *fulfillment.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		sessionID := strings.TrimPrefix(r.URL.Path, "/orders/")
		if sessionID == "" || strings.Contains(sessionID, "/") {
			http.Error(w, "session id is required", http.StatusBadRequest)
			return
		}

		record, err := pipeline.GetFulfillment(r.Context(), sessionID)
		if err != nil {
			status := http.StatusInternalServerError
			var rich *goerrors.Error
			if goerrors.As(err, &rich) {
				if rich.Category == goerrors.CategoryNotFound {
					status = http.StatusNotFound
				} else if rich.Code != 0 {
					status = rich.Code
				}
			}
			http.Error(w, "order lookup failed", status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(orderResponse{
			SessionID:      record.SessionID,
			Status:         record.Status,
			LabelURL:       record.LabelURL,
			TrackingNumber: record.TrackingNumber,
			RateID:         record.RateID,
			UpdatedAt:      record.UpdatedAt,
		})
	}
}

type orderResponse struct {
	SessionID      string    `json:"session_id"`
	Status         string    `json:"status"`
	LabelURL       string    `json:"label_url,omitempty"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	RateID         string    `json:"rate_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}
