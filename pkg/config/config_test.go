package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(prev))
	})
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWithoutEnvFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "clinic-booking", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "booking-events", cfg.Kafka.Topic)
	assert.Equal(t, 100, cfg.Booking.MaxDailyDiscounts)
	assert.Equal(t, "Asia/Kolkata", cfg.Booking.QuotaTimezone)

	pct, err := cfg.Booking.DiscountPercentDecimal()
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.RequireFromString("12.0")))
}

func TestLoadMalformedEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NOT A VALID LINE\n"), 0o644))
	chdir(t, dir)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read .env")
}

func TestLoadWithPath(t *testing.T) {
	path := writeEnvFile(t, "SERVER_PORT=9090\nDISCOUNT_PERCENT=15.5\nKAFKA_BROKERS=kafka-1:9092,kafka-2:9092\n")

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "15.5", cfg.Booking.DiscountPercent)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadWithPathMissingFile(t *testing.T) {
	_, err := LoadWithPath(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
}

func TestValidateRejectsBadKnobs(t *testing.T) {
	tests := []struct {
		name string
		env  string
	}{
		{"bad discount percent", "DISCOUNT_PERCENT=twelve\n"},
		{"bad threshold", "HIGH_VALUE_THRESHOLD=lots\n"},
		{"bad timezone", "QUOTA_TIMEZONE=Mars/Olympus\n"},
		{"negative quota cap", "MAX_DAILY_DISCOUNTS=-1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithPath(writeEnvFile(t, tt.env))
			require.Error(t, err)
		})
	}
}
