package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ServiceName    = "omnipos-inventory-service"
	ServiceVersion = "0.1.0"
)

type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Telemetry TelemetryConfig
	Inventory InventoryConfig
}

type ServerConfig struct {
	AppEnv        string
	GRPCPort      string
	MetricsPort   string
	StorageDriver string // "postgres" or "memory"
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	StockTTL time.Duration
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration

	OrderTopic    string
	GroupID       string
	ConsumeOrders bool
}

type TelemetryConfig struct {
	Enabled    bool
	Endpoint   string
	AuthHeader string
	Insecure   bool
}

type InventoryConfig struct {
	IdempotencyTTL     time.Duration
	SweepInterval      time.Duration
	SweepBatchSize     int
	NotifyTimeout      time.Duration
	OutboundPickOrder  string
	LowStockDefault    int64
	LowStockThresholds string
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:        getEnv("APP_ENV", "dev"),
			GRPCPort:      getEnv("GRPC_PORT", ":8083"),
			MetricsPort:   getEnv("METRICS_PORT", ":2112"),
			StorageDriver: getEnv("STORAGE_DRIVER", "postgres"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5433"),
			User:            getEnv("POSTGRES_USER", "omnipos"),
			Password:        getEnv("POSTGRES_PASSWORD", "omnipos"),
			DBName:          getEnv("POSTGRES_DB", "omnipos_inventory"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			StockTTL: getEnvDuration("REDIS_STOCK_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:      getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:        getEnv("KAFKA_TOPIC_INVENTORY", "inventory.events"),
			BatchTimeout: getEnvDuration("KAFKA_BATCH_TIMEOUT", 10*time.Millisecond),

			OrderTopic:    getEnv("KAFKA_TOPIC_ORDERS", "order.events"),
			GroupID:       getEnv("KAFKA_GROUP_ID", "inventory-service"),
			ConsumeOrders: getEnvBool("KAFKA_CONSUME_ORDERS", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:    getEnvBool("OTEL_ENABLED", false),
			Endpoint:   getEnv("OTEL_ENDPOINT", "localhost:4318"),
			AuthHeader: getEnv("OTEL_AUTH_HEADER", ""),
			Insecure:   getEnvBool("OTEL_INSECURE", true),
		},
		Inventory: InventoryConfig{
			IdempotencyTTL:     getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
			SweepInterval:      getEnvDuration("IDEMPOTENCY_SWEEP_INTERVAL", time.Minute),
			SweepBatchSize:     getEnvInt("IDEMPOTENCY_SWEEP_BATCH", 500),
			NotifyTimeout:      getEnvDuration("NOTIFY_TIMEOUT", 2*time.Second),
			OutboundPickOrder:  getEnv("OUTBOUND_PICK_ORDER", "updated"),
			LowStockDefault:    int64(getEnvInt("LOW_STOCK_DEFAULT", 0)),
			LowStockThresholds: getEnv("LOW_STOCK_THRESHOLDS", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.Split(value, ",")
	}
	return fallback
}
