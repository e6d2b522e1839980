package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tablebook/internal/api"
	"tablebook/internal/availability"
	"tablebook/internal/config"
	"tablebook/internal/database"
	"tablebook/internal/events"
	"tablebook/internal/metrics"
	"tablebook/internal/orders"
	"tablebook/internal/reservation"
)

func newServeCmd(configPath *string) *cobra.Command {
	var watchInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reservation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			be, err := openBackend(ctx, cfg, loc, &logger)
			if err != nil {
				return err
			}
			defer be.close()

			locker, rdb, err := newLocker(ctx, cfg, &logger)
			if err != nil {
				return err
			}
			if rdb != nil {
				defer rdb.Close()
			}

			engine := availability.NewEngine(be.store, be.store, cfg.Availability, &logger)
			bus := events.NewEventBus(64, &logger)
			svc := reservation.NewService(be.store, engine, locker, bus, &logger,
				reservation.WithLocation(loc))
			bus.SetSnapshot(func(ctx context.Context) (any, error) { return svc.List(ctx) })

			if cfg.NATS.URL != "" {
				closeNATS, err := startNATS(ctx, cfg, be.store, bus, &logger)
				if err != nil {
					return err
				}
				defer closeNATS()
			}

			path := *configPath
			if path == "" {
				path = "configs/config.yaml"
			}
			err = config.WatchAvailability(ctx, path, watchInterval, &logger, func(p availability.Policy) {
				if err := engine.SetPolicy(p); err != nil {
					logger.Warn().Err(err).Msg("ignoring invalid availability policy")
				}
			})
			if err != nil {
				logger.Warn().Err(err).Msg("config watcher disabled")
			}

			if be.sqlite != nil && cfg.Backup.Enabled {
				backups := database.NewBackupService(be.sqlite, cfg.Backup, &logger)
				go backups.Start(ctx)
			}

			go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, be.ping, rdb, &logger)
			if cfg.Monitoring.PrometheusEnabled {
				metrics.Register()
				go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
			}

			handler := api.NewHandler(svc, engine, bus, api.Config{
				RateLimitRPS:   cfg.Server.RateLimitRPS,
				RateLimitBurst: cfg.Server.RateLimitBurst,
				Location:       loc,
			}, &logger)
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:           handler.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(ctxShutdown)
			}()

			logger.Info().
				Int("port", cfg.Server.Port).
				Str("storage", cfg.Storage.Driver).
				Msg("tablebook started")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			logger.Info().Msg("tablebook stopped")
			return nil
		},
	}

	cmd.Flags().DurationVar(&watchInterval, "watch-interval", 30*time.Second,
		"how often to poll the config file for availability policy changes")
	return cmd
}

func newClearAllCmd(configPath *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear-all",
		Short: "Delete every reservation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete reservations without --yes")
			}
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			be, err := openBackend(ctx, cfg, loc, &logger)
			if err != nil {
				return err
			}
			defer be.close()

			svc := reservation.NewService(be.store, nil, nil, nil, &logger, reservation.WithLocation(loc))
			n, err := svc.ClearAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d reservations\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func startNATS(ctx context.Context, cfg *config.Config, st orders.Store, bus *events.EventBus, logger *zerolog.Logger) (func(), error) {
	pub, err := events.NewNATSPublisher(cfg.NATS.URL)
	if err != nil {
		return nil, err
	}
	events.Forward(bus, pub, cfg.NATS.ReservationSubject)

	sub, err := events.NewNATSSubscriber(cfg.NATS.URL, logger)
	if err != nil {
		_ = pub.Close()
		return nil, err
	}
	ingestor := orders.NewIngestor(st, bus, logger)
	if err := ingestor.Start(ctx, sub, cfg.NATS.OrderSubject); err != nil {
		_ = pub.Close()
		_ = sub.Close()
		return nil, err
	}

	return func() {
		_ = sub.Close()
		_ = pub.Close()
	}, nil
}
