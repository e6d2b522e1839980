package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablebook/internal/availability"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("log:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "data/tablebook.db", cfg.Database.Path)
	assert.Equal(t, "orders.status", cfg.NATS.OrderSubject)
	assert.Equal(t, availability.DefaultPolicy(), cfg.Availability)
	assert.Equal(t, 10*time.Second, cfg.LockTTL())
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("TABLEBOOK_REDIS", "redis:6379")

	cfg, err := Parse([]byte("redis:\n  address: ${TABLEBOOK_REDIS}\navailability:\n  buffer_minutes: 45\n"))
	require.NoError(t, err)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	assert.Equal(t, 45, cfg.Availability.BufferMinutes)
	assert.Equal(t, 90, cfg.Availability.SeatingMinutes)
}

func TestParse_ZeroBuffer(t *testing.T) {
	cfg, err := Parse([]byte("availability:\n  buffer_minutes: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Availability.BufferMinutes)
	assert.Equal(t, 30, cfg.Availability.PreBufferMinutes)
	assert.Equal(t, 22, cfg.Availability.LastSlotHour)

	cfg, err = Parse([]byte("availability:\n  seating_minutes: 120\n"))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Availability.BufferMinutes)
	assert.Equal(t, 120, cfg.Availability.SeatingMinutes)
}

func TestBackupConfig_Interval(t *testing.T) {
	assert.Equal(t, 6*time.Hour, BackupConfig{IntervalHours: 6}.Interval())
	assert.Equal(t, 24*time.Hour, BackupConfig{}.Interval())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown driver", "storage:\n  driver: postgres\n"},
		{"bad timezone", "storage:\n  timezone: Mars/Olympus\n"},
		{"bad slot hours", "availability:\n  first_slot_hour: 23\n  last_slot_hour: 9\n"},
		{"negative buffer", "availability:\n  buffer_minutes: -10\n"},
		{"bad yaml", "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLocation(t *testing.T) {
	cfg, err := Parse([]byte("storage:\n  timezone: UTC\n"))
	require.NoError(t, err)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestWatchAvailability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("availability:\n  buffer_minutes: 30\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan availability.Policy, 1)
	err := WatchAvailability(ctx, path, 10*time.Millisecond, nil, func(p availability.Policy) {
		select {
		case updates <- p:
		default:
		}
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("availability:\n  buffer_minutes: 60\n"), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case p := <-updates:
		assert.Equal(t, 60, p.BufferMinutes)
	case <-time.After(2 * time.Second):
		t.Fatal("policy update not delivered")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchAvailability_RejectedChangeIsLogged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("availability:\n  buffer_minutes: 30\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	logger := zerolog.New(&out)
	var mu sync.Mutex
	calls := 0
	err := WatchAvailability(ctx, path, 10*time.Millisecond, &logger, func(availability.Policy) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("availability:\n  first_slot_hour: 23\n  last_slot_hour: 9\n"), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "config change rejected")
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), `"level":"warn"`)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, calls)
}
