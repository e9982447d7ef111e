package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/cozyartz/michiganspots/internal/config"
	"github.com/cozyartz/michiganspots/internal/database"
	"github.com/cozyartz/michiganspots/internal/engine"
	"github.com/cozyartz/michiganspots/internal/handler/health"
	"github.com/cozyartz/michiganspots/internal/leaderboard"
	"github.com/cozyartz/michiganspots/internal/migrations"
	"github.com/cozyartz/michiganspots/internal/ratelimit"
	"github.com/cozyartz/michiganspots/internal/server"
	"github.com/cozyartz/michiganspots/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	applied, err := migrations.Run(ctx, db)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "migrations_applied", applied)

	// --- Redis ---
	rdb, err := openRedis(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer rdb.Close()
	logger.Info("connected to redis")

	// --- Engine ---
	broker := server.NewBroker()
	limiter := ratelimit.New(rdb, ratelimit.Options{
		Prefix:    cfg.RedisKeyPrefix,
		DailyCap:  cfg.DailySubmissionCap,
		HourlyCap: cfg.HourlySubmissionCap,
	})
	eng := engine.New(logger, store.New(db), limiter, leaderboard.New(rdb, cfg.RedisKeyPrefix), broker, engine.Config{
		MaxAccuracyMeters:   cfg.MaxAccuracyMeters,
		DefaultRadiusMeters: cfg.DefaultRadiusMeters,
		MaxSpeedKmh:         cfg.MaxTravelSpeedKmh,
		StorageTimeout:      cfg.StorageTimeout,
	})
	if err := eng.SyncBadges(ctx); err != nil {
		return fmt.Errorf("syncing badges: %w", err)
	}
	if cfg.SeedDemo {
		if err := server.SeedDemo(ctx, logger, eng); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}
	if cfg.AdminTokenHash == "" {
		logger.Warn("ADMIN_TOKEN_HASH not set, admin routes disabled")
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Engine:         eng,
		Broker:         broker,
		AdminTokenHash: cfg.AdminTokenHash,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, map[string]health.Checker{
			"sqlite": dbChecker{db},
			"redis":  redisChecker{rdb},
		}).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// dbChecker adapts *sql.DB to health.Checker.
type dbChecker struct{ db *sql.DB }

func (d dbChecker) Check(ctx context.Context) error { return d.db.PingContext(ctx) }

// redisChecker adapts *redis.Client to health.Checker.
type redisChecker struct{ client *redis.Client }

func (r redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }
