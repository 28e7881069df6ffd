package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "1.0.0", cfg.Policy.Version)
	assert.Equal(t, time.Hour, cfg.Policy.DedupWindow)
	assert.Equal(t, 365, cfg.Policy.DefaultExpirationDays)
	assert.Equal(t, 90, cfg.Policy.DefaultReviewDays)
	assert.Equal(t, []string{"Critical", "High"}, cfg.Policy.BlockingSeverities)
	assert.Equal(t, time.Minute, cfg.Review.Interval)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("COMPLY_ADDR", ":9090")
	t.Setenv("COMPLY_POLICY_DEDUP_WINDOW", "15m")
	t.Setenv("COMPLY_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("COMPLY_POLICY_MAX_NON_BLOCKING_FAILURES", "3")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 15*time.Minute, cfg.Policy.DedupWindow)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3, cfg.Policy.MaxNonBlockingFailures)
}

func TestFromEnvRejectsInvalid(t *testing.T) {
	t.Run("zero dedup window", func(t *testing.T) {
		t.Setenv("COMPLY_POLICY_DEDUP_WINDOW", "0s")
		_, err := FromEnv()
		require.Error(t, err)
	})
	t.Run("negative expiration", func(t *testing.T) {
		t.Setenv("COMPLY_POLICY_EXPIRATION_DAYS", "-1")
		_, err := FromEnv()
		require.Error(t, err)
	})
	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("COMPLY_POLICY_DEDUP_WINDOW", "soon")
		_, err := FromEnv()
		require.Error(t, err)
	})
}
