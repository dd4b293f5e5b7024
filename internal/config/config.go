package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NewRelic   NewRelicConfig
	RabbitMQ   RabbitMQConfig
	Settlement SettlementConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Format string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
}

// RedisConfig holds Redis configuration. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// RabbitMQConfig holds event publishing configuration. An empty URL logs
// events instead of publishing them.
type RabbitMQConfig struct {
	URL            string
	Exchange       string
	PublishTimeout time.Duration
}

// SettlementConfig holds the settlement engine settings.
type SettlementConfig struct {
	PersistenceTimeout time.Duration
	LockTTL            time.Duration
	DefaultRegion      string
	Currency           string
	StoreBackend       string
	NodeID             int64
}

// Load loads configuration from the environment, reading a .env file first
// when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("SERVER_PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			AllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			DBName:       v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		NewRelic: NewRelicConfig{
			AppName:    v.GetString("NEW_RELIC_APP_NAME"),
			LicenseKey: v.GetString("NEW_RELIC_LICENSE_KEY"),
			Enabled:    v.GetBool("NEW_RELIC_ENABLED"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:            v.GetString("RABBITMQ_URL"),
			Exchange:       v.GetString("RABBITMQ_EXCHANGE"),
			PublishTimeout: v.GetDuration("RABBITMQ_PUBLISH_TIMEOUT"),
		},
		Settlement: SettlementConfig{
			PersistenceTimeout: v.GetDuration("SETTLEMENT_PERSISTENCE_TIMEOUT"),
			LockTTL:            v.GetDuration("SETTLEMENT_LOCK_TTL"),
			DefaultRegion:      strings.ToUpper(v.GetString("SETTLEMENT_DEFAULT_REGION")),
			Currency:           strings.ToUpper(v.GetString("SETTLEMENT_CURRENCY")),
			StoreBackend:       strings.ToLower(v.GetString("STORE_BACKEND")),
			NodeID:             v.GetInt64("SNOWFLAKE_NODE_ID"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", "10s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "5s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "transfer_ledger")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("NEW_RELIC_APP_NAME", "transfer-ledger")
	v.SetDefault("NEW_RELIC_LICENSE_KEY", "")
	v.SetDefault("NEW_RELIC_ENABLED", false)

	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "settlement.events")
	v.SetDefault("RABBITMQ_PUBLISH_TIMEOUT", "5s")

	v.SetDefault("SETTLEMENT_PERSISTENCE_TIMEOUT", "5s")
	v.SetDefault("SETTLEMENT_LOCK_TTL", "10s")
	v.SetDefault("SETTLEMENT_DEFAULT_REGION", "TR")
	v.SetDefault("SETTLEMENT_CURRENCY", "TRY")
	v.SetDefault("STORE_BACKEND", StoreBackendPostgres)
	v.SetDefault("SNOWFLAKE_NODE_ID", 1)
}

func (c *Config) validate() error {
	switch c.Settlement.StoreBackend {
	case StoreBackendPostgres, StoreBackendMemory:
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.Settlement.StoreBackend)
	}
	if c.Settlement.PersistenceTimeout <= 0 {
		return errors.New("config: SETTLEMENT_PERSISTENCE_TIMEOUT must be positive")
	}
	if c.Settlement.LockTTL <= 0 {
		return errors.New("config: SETTLEMENT_LOCK_TTL must be positive")
	}
	if c.Settlement.NodeID < 0 || c.Settlement.NodeID > 1023 {
		return errors.New("config: SNOWFLAKE_NODE_ID must be within 0..1023")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
