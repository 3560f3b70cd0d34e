// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wardkeep/wardkeep/internal/cache"
	"github.com/wardkeep/wardkeep/internal/config"
	"github.com/wardkeep/wardkeep/internal/logging"
	"github.com/wardkeep/wardkeep/internal/notify"
	"github.com/wardkeep/wardkeep/internal/observability"
	"github.com/wardkeep/wardkeep/internal/protection"
	"github.com/wardkeep/wardkeep/internal/queue"
	"github.com/wardkeep/wardkeep/internal/store"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the wardkeep server",
		Long: `Start the wardkeep server: connects to PostgreSQL, runs the
deferred save queue and serves metrics and health probes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	cmd.Flags().String("metrics-addr", "", "metrics/health HTTP address")
	cmd.Flags().Int("cache-size", 0, "record cache capacity")
	cmd.Flags().Duration("flush-interval", 0, "save queue flush interval")
	cmd.Flags().String("log-format", "", "log format (json or text)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logging.SetDefault("wardkeep", version, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	gateway := store.New(pool)

	records, err := cache.New(cfg.CacheSize)
	if err != nil {
		return err
	}

	broadcaster := notify.NewBroadcaster()
	saves := queue.New(queue.WithFlushInterval(cfg.FlushInterval))

	deps := &protection.Deps{
		Gateway:  gateway,
		History:  gateway,
		Queue:    saves,
		Cache:    records,
		Notifier: broadcaster,
	}
	protection.NewManager(deps, records)

	// Audit log for removal lifecycle events.
	events := broadcaster.Subscribe()
	defer broadcaster.Unsubscribe(events)
	go func() {
		for ev := range events {
			slog.Info("protection removal",
				"event_id", ev.ID,
				"protection_id", ev.ProtectionID,
				"kind", ev.Kind.String(),
				"owner", ev.Owner,
				"location", ev.CacheKey)
		}
	}()

	var ready atomic.Bool
	obs := observability.NewServer(cfg.MetricsAddr, ready.Load,
		protection.RegisterMetrics,
		queue.RegisterMetrics,
		cache.RegisterMetrics,
	)
	obsErr, err := obs.Start()
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		saves.Run(ctx)
	}()

	if err := pool.Ping(ctx); err != nil {
		stop()
		wg.Wait()
		return oops.Code("DB_CONNECT_FAILED").Wrapf(err, "ping database")
	}
	ready.Store(true)
	slog.Info("wardkeep server ready",
		"metrics_addr", obs.Addr(),
		"cache_size", cfg.CacheSize,
		"flush_interval", cfg.FlushInterval)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-obsErr:
		if err != nil {
			stop()
			wg.Wait()
			return oops.Wrapf(err, "observability server failed")
		}
	}

	ready.Store(false)
	stop()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := obs.Stop(shutdownCtx); err != nil {
		return err
	}

	return nil
}
