package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Settlement.PersistenceTimeout)
	assert.Equal(t, 10*time.Second, cfg.Settlement.LockTTL)
	assert.Equal(t, "TR", cfg.Settlement.DefaultRegion)
	assert.Equal(t, "TRY", cfg.Settlement.Currency)
	assert.Equal(t, StoreBackendPostgres, cfg.Settlement.StoreBackend)
	assert.Equal(t, int64(1), cfg.Settlement.NodeID)
	assert.Equal(t, "settlement.events", cfg.RabbitMQ.Exchange)
	assert.Empty(t, cfg.RabbitMQ.URL)
	assert.Empty(t, cfg.Redis.Addr)
	assert.False(t, cfg.NewRelic.Enabled)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SETTLEMENT_PERSISTENCE_TIMEOUT", "2s")
	t.Setenv("SETTLEMENT_DEFAULT_REGION", "de")
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("NEW_RELIC_ENABLED", "true")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Settlement.PersistenceTimeout)
	assert.Equal(t, "DE", cfg.Settlement.DefaultRegion)
	assert.Equal(t, StoreBackendMemory, cfg.Settlement.StoreBackend)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.NewRelic.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown backend", "STORE_BACKEND", "mongo"},
		{"zero timeout", "SETTLEMENT_PERSISTENCE_TIMEOUT", "0s"},
		{"zero lock ttl", "SETTLEMENT_LOCK_TTL", "0s"},
		{"node id out of range", "SNOWFLAKE_NODE_ID", "5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := load(viper.New())
			assert.Error(t, err)
		})
	}
}
