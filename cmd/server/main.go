// certitrack server: test validation and certificate lifecycle engine for
// regulated heavy equipment. main wires configuration, storage, services,
// and the HTTP surface; business logic lives in the internal packages.
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

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"certitrack/internal/alerts"
	assethandler "certitrack/internal/asset/handler"
	assetservice "certitrack/internal/asset/service"
	assetstore "certitrack/internal/asset/store"
	"certitrack/internal/audit"
	certhandler "certitrack/internal/certificate/handler"
	certservice "certitrack/internal/certificate/service"
	certstore "certitrack/internal/certificate/store"
	httpapi "certitrack/internal/http"
	insphandler "certitrack/internal/inspection/handler"
	inspservice "certitrack/internal/inspection/service"
	inspstore "certitrack/internal/inspection/store"
	jwttoken "certitrack/internal/jwt_token"
	"certitrack/internal/numbering"
	"certitrack/internal/platform/config"
	"certitrack/internal/platform/httpserver"
	"certitrack/internal/platform/logger"
	"certitrack/internal/platform/metrics"
	platformredis "certitrack/internal/platform/redis"
	"certitrack/migrations"
	"certitrack/pkg/platform/tx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage. Postgres is optional in development; without it everything
	// runs on the in-memory stores.
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database failed", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		if err := migrations.Up(ctx, db); err != nil {
			log.Error("migrations failed", "error", err.Error())
			os.Exit(1)
		}
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Sequence counters prefer Redis, then Postgres, then memory.
	var counters numbering.CounterStore
	switch {
	case redisClient != nil:
		counters = numbering.NewRedisCounterStore(redisClient.Client)
	case db != nil:
		counters = numbering.NewPostgresCounterStore(db)
	default:
		counters = numbering.NewInMemoryCounterStore()
	}
	numbers, err := numbering.NewGenerator(counters, numbering.WithMetrics(m))
	if err != nil {
		log.Error("numbering setup failed", "error", err.Error())
		os.Exit(1)
	}

	var (
		assetStore assetservice.Store
		testStore  inspservice.Store
		certStore  certservice.Store
	)
	if db != nil {
		assetStore = assetstore.NewPostgres(db)
		testStore = inspstore.NewPostgres(db)
		certStore = certstore.NewPostgres(db)
	} else {
		log.Warn("no database configured, using in-memory stores")
		assetStore = assetstore.NewInMemory()
		testStore = inspstore.NewInMemory()
		certStore = certstore.NewInMemory()
	}

	auditor := audit.NewPublisher(audit.NewInMemoryStore())

	assetSvc := assetservice.New(assetStore,
		assetservice.WithLogger(log),
		assetservice.WithAuditor(auditor),
	)
	testSvc := inspservice.New(testStore, assetSvc, numbers,
		inspservice.WithLogger(log),
		inspservice.WithMetrics(m),
		inspservice.WithAuditor(auditor),
	)
	certOpts := []certservice.Option{
		certservice.WithLogger(log),
		certservice.WithMetrics(m),
		certservice.WithAuditor(auditor),
		certservice.WithRenderTimeout(cfg.RenderTimeout),
		certservice.WithVerifyBaseURL(cfg.VerifyBaseURL),
	}
	if db != nil {
		// Issuance writes span the certificate and asset tables; commit
		// them as one transaction.
		certOpts = append(certOpts, certservice.WithTxRunner(tx.NewSQL(db)))
	}
	certSvc := certservice.New(certStore, assetSvc, assetStore, testSvc, numbers, certOpts...)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "certitrack")

	router := httpapi.NewRouter(httpapi.Deps{
		Assets:       assethandler.New(assetSvc, log),
		Tests:        insphandler.New(testSvc, log),
		Certificates: certhandler.New(certSvc, log),
		JWTValidator: jwtService,
		Logger:       log,
	})
	srv := httpserver.New(cfg.Addr, router)

	scanner := alerts.NewScanner(assetStore, alerts.WithMetrics(m))
	worker := alerts.NewWorker(scanner, alerts.NewSlogNotifier(log), log,
		cfg.AlertHorizonDays, cfg.AlertScanInterval, alerts.WithAuditor(auditor))
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("expiry worker stopped", "error", err.Error())
		}
	}()

	go func() {
		log.Info("starting certitrack", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}
