package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"polledger/internal/audit"
	auditkafka "polledger/internal/audit/kafka"
	auditpg "polledger/internal/audit/postgres"
	insurercache "polledger/internal/insurers/cache"
	insurerhandler "polledger/internal/insurers/handler"
	insurermetrics "polledger/internal/insurers/metrics"
	insurerservice "polledger/internal/insurers/service"
	insurerstore "polledger/internal/insurers/store"
	insurerpg "polledger/internal/insurers/store/postgres"
	ledgerhandler "polledger/internal/ledger/handler"
	ledgermetrics "polledger/internal/ledger/metrics"
	ledgerservice "polledger/internal/ledger/service"
	ledgerstore "polledger/internal/ledger/store"
	ledgerpg "polledger/internal/ledger/store/postgres"
	"polledger/internal/platform/config"
	"polledger/internal/platform/httpserver"
	"polledger/internal/platform/logger"
	platformmetrics "polledger/internal/platform/metrics"
	platformredis "polledger/internal/platform/redis"
	httptransport "polledger/internal/transport/http"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDependencies(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	router := httptransport.NewRouter(httptransport.Config{
		Handlers: []httptransport.Registrar{
			ledgerhandler.New(deps.ledger, log),
			insurerhandler.New(deps.insurers, log),
		},
		Metrics: deps.httpMetrics,
		Checks:  deps.healthChecks,
	})
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting polledger", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if deps.auditWorker != nil {
		group.Go(func() error {
			return deps.auditWorker.Run(groupCtx)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("stopped")
}

// dependencies holds everything main wires together. Postgres, Redis and
// Kafka are all optional: without DATABASE_URL the service runs on in-memory
// stores, without KAFKA_BROKERS audit events stay in the outbox.
type dependencies struct {
	ledger       *ledgerservice.Service
	insurers     *insurerservice.Service
	auditWorker  *audit.Worker
	httpMetrics  *platformmetrics.Metrics
	healthChecks map[string]httptransport.HealthChecker

	db        *sql.DB
	redis     *platformredis.Client
	auditSink *auditkafka.Sink
}

func buildDependencies(ctx context.Context, cfg config.Config, log *slog.Logger) (*dependencies, error) {
	deps := &dependencies{
		httpMetrics:  platformmetrics.New(),
		healthChecks: map[string]httptransport.HealthChecker{},
	}

	var (
		ledgerSt  ledgerstore.Store
		ledgerTx  ledgerstore.Tx
		insurerSt insurerstore.Store
		insurerTx insurerstore.Tx
		auditSt   audit.Store
		outbox    audit.Outbox
	)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return nil, err
		}
		deps.db = db
		deps.healthChecks["postgres"] = dbCheck{db}

		lpg := ledgerpg.New(db)
		ledgerSt, ledgerTx = lpg, lpg
		ipg := insurerpg.New(db)
		insurerSt, insurerTx = ipg, ipg
		apg := auditpg.New(db)
		auditSt, outbox = apg, apg
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		lmem := ledgerstore.NewInMemoryStore()
		ledgerSt, ledgerTx = lmem, lmem
		imem := insurerstore.NewInMemoryStore()
		insurerSt, insurerTx = imem, imem
		amem := audit.NewInMemoryStore()
		auditSt, outbox = amem, amem
	}

	redisClient, err := platformredis.New(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		deps.redis = redisClient
		deps.healthChecks["redis"] = redisClient
	}

	if len(cfg.KafkaBrokers) > 0 {
		sink, err := auditkafka.New(cfg.KafkaBrokers, auditkafka.WithTopic(cfg.AuditTopic))
		if err != nil {
			return nil, err
		}
		if err := sink.EnsureTopic(ctx, 3, 1); err != nil {
			sink.Close()
			return nil, err
		}
		deps.auditSink = sink
		deps.auditWorker = audit.NewWorker(outbox, sink, log)
	} else {
		log.Warn("KAFKA_BROKERS not set, audit events stay in the outbox")
	}

	publisher := audit.NewPublisher(auditSt)

	deps.ledger = ledgerservice.New(ledgerSt, ledgerTx,
		ledgerservice.WithAudit(publisher),
		ledgerservice.WithMetrics(ledgermetrics.New()),
		ledgerservice.WithLogger(log),
	)

	insurerM := insurermetrics.New()
	catalog := insurercache.NewCatalog(redisClient, insurerSt, config.LinesCacheTTL, log, insurerM)
	deps.insurers = insurerservice.New(insurerSt, insurerTx,
		insurerservice.WithCatalog(catalog),
		insurerservice.WithAudit(publisher),
		insurerservice.WithMetrics(insurerM),
	)

	return deps, nil
}

// Close releases external connections. Safe on partially built deps.
func (d *dependencies) Close() {
	if d.auditSink != nil {
		d.auditSink.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
}

type dbCheck struct{ db *sql.DB }

func (c dbCheck) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
