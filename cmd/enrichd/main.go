// Package main implements the enrichment service daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	_ "go.uber.org/automaxprocs"

	"github.com/carthesien/enrich/engine/cost"
	"github.com/carthesien/enrich/engine/enrich"
	"github.com/carthesien/enrich/engine/evidence"
	"github.com/carthesien/enrich/engine/match"
	"github.com/carthesien/enrich/engine/refindex"
	"github.com/carthesien/enrich/engine/score"
	"github.com/carthesien/enrich/engine/semantic"
	"github.com/carthesien/enrich/pkg/fn"
	"github.com/carthesien/enrich/pkg/metrics"
	"github.com/carthesien/enrich/pkg/mid"
)

// Config holds all environment-based configuration.
type Config struct {
	Port            string
	ReferenceCSV    string
	PostgresURL     string
	RefreshInterval time.Duration
	NATSURL         string
	Neo4jURL        string
	Neo4jUser       string
	Neo4jPass       string
	QdrantURL       string
	Collection      string
	PriceURL        string
	PriceInterval   time.Duration
	CORSOrigin      string
}

func loadConfig() Config {
	return Config{
		Port:            envOr("PORT", "8080"),
		ReferenceCSV:    envOr("REFERENCE_CSV", ""),
		PostgresURL:     envOr("POSTGRES_URL", ""),
		RefreshInterval: envDuration("REFRESH_INTERVAL", 6*time.Hour),
		NATSURL:         envOr("NATS_URL", ""),
		Neo4jURL:        envOr("NEO4J_URL", ""),
		Neo4jUser:       envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:       envOr("NEO4J_PASS", "password"),
		QdrantURL:       envOr("QDRANT_URL", ""),
		Collection:      envOr("QDRANT_COLLECTION", "variants"),
		PriceURL:        envOr("PRICE_URL", ""),
		PriceInterval:   envDuration("PRICE_INTERVAL", time.Hour),
		CORSOrigin:      envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()

	// --- Reference index ---
	idx := refindex.NewIndex()
	src, cleanup, err := referenceSource(ctx, cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	snap, err := fn.Retry(ctx, fn.DefaultRetry, func(ctx context.Context) fn.Result[*refindex.Snapshot] {
		return fn.FromPair(idx.Refresh(ctx, src))
	}).Unwrap()
	if err != nil {
		return fmt.Errorf("load reference: %w", err)
	}
	logger.Info("reference loaded", "variants", snap.Len(), "version", snap.Version())
	go refreshLoop(ctx, idx, src, cfg.RefreshInterval, logger)

	// --- Evidence store ---
	var store evidence.Store = evidence.NewMemoryStore()
	if cfg.Neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(ctx)
		store = evidence.NewNeo4jStore(driver)
	}

	// --- Matcher, with optional semantic recall ---
	matchOpts := []match.Option{match.WithLogger(logger), match.WithCache(4096)}
	if cfg.QdrantURL != "" {
		vectors, err := semantic.New(cfg.QdrantURL, cfg.Collection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer vectors.Close()
		if err := vectors.EnsureCollection(ctx); err != nil {
			return err
		}
		matchOpts = append(matchOpts, match.WithRecaller(vectors))
	}
	matcher := match.New(idx, match.DefaultThresholds(), matchOpts...)

	// --- Price feed ---
	feed := cost.NewFeed(nil)
	if cfg.PriceURL != "" {
		poller := cost.NewPoller(&cost.HTTPSource{URL: cfg.PriceURL}, feed, cfg.PriceInterval, logger)
		go poller.Run(ctx)
	} else {
		logger.Warn("no PRICE_URL configured, cost model disabled until prices arrive")
	}

	// --- Service ---
	svc := enrich.NewService(enrich.Deps{
		Matcher:    matcher,
		Fuser:      evidence.New(store, evidence.DefaultConfig(), logger),
		Feed:       feed,
		CostInputs: cost.DefaultInputs(),
		Scorer:     score.NewScorer(nil, score.Bands{}, nil),
		Metrics:    reg,
		Logger:     logger,
	})

	// --- NATS consumer ---
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		sub, err := enrich.StartConsumer(nc, svc, logger)
		if err != nil {
			return fmt.Errorf("nats subscribe: %w", err)
		}
		defer sub.Unsubscribe()
		logger.Info("consumer started", "subject", enrich.ListingSubject)
	}

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.Handle("/api/", enrich.NewHandler(svc, idx, feed, logger))
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("enrichd"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("enrichd starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// referenceSource picks Postgres when configured, else the CSV file.
func referenceSource(ctx context.Context, cfg Config) (refindex.Source, func(), error) {
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres pool: %w", err)
		}
		return refindex.NewPostgresSource(pool), pool.Close, nil
	}
	if cfg.ReferenceCSV != "" {
		return refindex.CSVSource{Path: cfg.ReferenceCSV}, nil, nil
	}
	return nil, nil, fmt.Errorf("no reference source: set POSTGRES_URL or REFERENCE_CSV")
}

func refreshLoop(ctx context.Context, idx *refindex.Index, src refindex.Source, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := idx.Refresh(ctx, src)
			if err != nil {
				logger.Error("reference refresh failed, keeping active snapshot", "err", err)
				continue
			}
			logger.Info("reference refreshed", "variants", snap.Len(), "version", snap.Version())
		}
	}
}
