package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	bidservice "tenderledger/internal/bid/service"
	"tenderledger/internal/engine"
	"tenderledger/internal/ledger"
	"tenderledger/internal/ledger/relay"
	ledgermemory "tenderledger/internal/ledger/store/memory"
	ledgerpostgres "tenderledger/internal/ledger/store/postgres"
	"tenderledger/internal/platform/config"
	"tenderledger/internal/platform/httpserver"
	kafkaproducer "tenderledger/internal/platform/kafka/producer"
	"tenderledger/internal/platform/logger"
	"tenderledger/internal/platform/metrics"
	platformredis "tenderledger/internal/platform/redis"
	httptransport "tenderledger/internal/transport/http"
)

// main wires high-level dependencies: config, the event log store, the
// replayed engine, the relay worker and the ops HTTP server. Business logic
// lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tender-ledger: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	// Each process run gets its own instance id so overlapping deployments can
	// be told apart in aggregated logs.
	log := logger.New().With("instance_id", uuid.NewString())
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httptransport.HealthChecker{}

	// Event log store: postgres when a DSN is configured, memory otherwise.
	var store ledger.Store
	if cfg.PostgresDSN != "" {
		if err := runMigrations(cfg); err != nil {
			return err
		}
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		store = ledgerpostgres.New(db)
		checks["postgres"] = httptransport.HealthCheckFunc(db.PingContext)
		log.Info("event log backed by postgres")
	} else {
		store = ledgermemory.New()
		log.Info("event log held in memory, state is lost on restart")
	}

	eng, err := engine.New(ctx, engine.Config{
		BidAmountPolicy:    bidservice.AmountPolicy(cfg.BidAmountPolicy),
		AllowDraftState:    cfg.AllowDraftState,
		DuplicateBidPolicy: bidservice.DuplicatePolicy(cfg.DuplicateBidPolicy),
	}, store, engine.WithLogger(log), engine.WithMetrics(m))
	if err != nil {
		return err
	}
	lastSeq, err := eng.Ledger.LastSeq(ctx)
	if err != nil {
		return err
	}
	log.Info("engine ready", "last_seq", lastSeq)

	g, ctx := errgroup.WithContext(ctx)

	// Relay worker, only when a broker is configured.
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkaproducer.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, 3, 1); err != nil {
			return err
		}

		var cps relay.Checkpoints = relay.NewMemoryCheckpoints()
		redisClient, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		if redisClient != nil {
			defer redisClient.Close()
			cps = relay.NewRedisCheckpoints(redisClient.Client, "")
			checks["redis"] = redisClient
		}

		worker := relay.New(store, producer, cps,
			relay.WithLogger(log), relay.WithMetrics(m))
		g.Go(func() error {
			log.Info("relay started", "topic", cfg.Kafka.Topic)
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("relay: %w", err)
			}
			return nil
		})
	}

	handler := httptransport.NewHandler(log, checks)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	g.Go(func() error {
		log.Info("ops server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

func runMigrations(cfg config.Server) error {
	mig, err := migrate.New("file://"+cfg.MigrationsDir, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer mig.Close()
	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
