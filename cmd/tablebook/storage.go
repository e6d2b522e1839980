package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tablebook/internal/availability"
	"tablebook/internal/config"
	"tablebook/internal/database"
	"tablebook/internal/lock"
	"tablebook/internal/mongo"
	"tablebook/internal/orders"
	"tablebook/internal/reservation"
)

// store is what both storage backends provide.
type store interface {
	reservation.Repository
	availability.ReservationSource
	availability.OrderSource
	orders.Store
}

type backend struct {
	store  store
	sqlite *database.DB
	ping   func(ctx context.Context) error
	close  func()
}

func openBackend(ctx context.Context, cfg *config.Config, loc *time.Location, logger *zerolog.Logger) (*backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		s, err := mongo.Connect(ctx, cfg.Mongo.URL, cfg.Mongo.Name, loc, logger)
		if err != nil {
			return nil, err
		}
		return &backend{
			store: s,
			ping:  s.Ping,
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = s.Close(closeCtx)
			},
		}, nil
	default:
		db, err := database.NewDB(cfg.Database.Path, loc, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &backend{
			store:  db,
			sqlite: db,
			ping:   db.PingContext,
			close:  func() { _ = db.Close() },
		}, nil
	}
}

// newLocker returns a Redis lock when Redis is configured so several instances serialise
// on the same tables; otherwise an in-process lock.
func newLocker(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (lock.Locker, *redis.Client, error) {
	if cfg.Redis.Address == "" {
		return lock.NewKeyedMutex(), nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info().Str("address", cfg.Redis.Address).Msg("using redis table locks")
	return lock.NewRedisLocker(rdb, "tablebook:lock:", cfg.LockTTL(), logger), rdb, nil
}
