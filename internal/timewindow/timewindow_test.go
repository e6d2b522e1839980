package timewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombine(t *testing.T) {
	date := time.Date(2024, 6, 1, 17, 45, 12, 500, time.UTC)

	tests := []struct {
		name  string
		clock string
		want  time.Time
	}{
		{"short hour", "9:05", time.Date(2024, 6, 1, 9, 5, 0, 0, time.UTC)},
		{"padded hour", "13:00", time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)},
		{"missing minute", "14", time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)},
		{"garbage", "ab:cd", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"empty", "", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Combine(date, tt.clock))
		})
	}
}

func TestMinutesBetween(t *testing.T) {
	a := time.Date(2024, 6, 1, 13, 20, 0, 0, time.UTC)
	b := time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)

	assert.Equal(t, 20.0, MinutesBetween(a, b))
	assert.Equal(t, -20.0, MinutesBetween(b, a))
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, h)
	assert.Equal(t, 30, m)

	for _, bad := range []string{"", "9", "24:00", "12:60", "12:5", "x:00", "123:00"} {
		_, _, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestNormalizeClock(t *testing.T) {
	got, err := NormalizeClock("09:05")
	require.NoError(t, err)
	assert.Equal(t, "9:05", got)
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)

	d, err := ParseDate("2024-06-01", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, loc), d)

	d, err = ParseDate("2024-06-01T22:30:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, loc), d)

	_, err = ParseDate("01-06-2024", loc)
	assert.Error(t, err)

	_, err = ParseDate("", loc)
	assert.Error(t, err)
}
