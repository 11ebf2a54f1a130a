package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 8*time.Second, cfg.AITimeout)
	assert.Equal(t, 2*time.Second, cfg.PaymentDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.AutoReplyDelay)
	assert.Equal(t, "simulated", cfg.PaymentsProvider)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.True(t, cfg.SeedDemoData)
}

func TestLoadServerConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("AI_TIMEOUT", "3s")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.AITimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PAYMENTS_PROVIDER", "stripe")
	t.Setenv("MIGRATE", "true")
	_, err := LoadServerConfig()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "JWT_SECRET")
	assert.Contains(t, msg, "STRIPE_API_KEY")
	assert.Contains(t, msg, "PG_DSN")
}

func TestLoadConsumerConfig(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:1,b:2")
	cfg, err := LoadConsumerConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.KafkaBrokers)
	assert.Equal(t, "ridelink-trust-consumer", cfg.KafkaGroup)
}
