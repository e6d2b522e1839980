package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"tablebook/internal/availability"
)

// WatchAvailability polls the config file and calls onUpdate with the availability policy
// whenever the file changes. The initial load is the caller's job. A change that fails to
// load is logged once and the current policy stays in place.
func WatchAvailability(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(availability.Policy)) error {
	if path == "" {
		path = "configs/config.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					logger.Warn().Err(err).Str("path", path).Msg("config stat failed")
					continue
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				lastMod = info.ModTime()

				data, err := os.ReadFile(path)
				if err != nil {
					logger.Warn().Err(err).Str("path", path).Msg("config read failed; keeping current availability policy")
					continue
				}
				cfg, err := Parse(data)
				if err != nil {
					logger.Warn().Err(err).Str("path", path).Msg("config change rejected; keeping current availability policy")
					continue
				}
				logger.Info().Str("path", path).Int("buffer_minutes", cfg.Availability.BufferMinutes).Msg("availability policy reloaded")
				if onUpdate != nil {
					onUpdate(cfg.Availability)
				}
			}
		}
	}()

	return nil
}
