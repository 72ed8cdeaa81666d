package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix scopes every environment variable consumed by the platform.
const EnvPrefix = "mercaderia"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Gateway      GatewayConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MERCADERIA_APP_ENV" required:"true"`
	Port         string `envconfig:"MERCADERIA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MERCADERIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MERCADERIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"MERCADERIA_DB_DSN"`

	Host     string `envconfig:"MERCADERIA_DB_HOST"`
	Port     int    `envconfig:"MERCADERIA_DB_PORT" default:"5432"`
	User     string `envconfig:"MERCADERIA_DB_USER"`
	Password string `envconfig:"MERCADERIA_DB_PASSWORD"`
	Name     string `envconfig:"MERCADERIA_DB_NAME"`
	SSLMode  string `envconfig:"MERCADERIA_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"MERCADERIA_DB_SQLITE_PATH" default:"mercaderia.db"`

	MaxOpenConns    int           `envconfig:"MERCADERIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MERCADERIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MERCADERIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MERCADERIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("db config: set MERCADERIA_DB_DSN or host/user/name parts")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"MERCADERIA_REDIS_URL"`
	Address      string        `envconfig:"MERCADERIA_REDIS_ADDR"`
	Password     string        `envconfig:"MERCADERIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"MERCADERIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MERCADERIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MERCADERIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MERCADERIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MERCADERIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MERCADERIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MERCADERIA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MERCADERIA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MERCADERIA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// GatewayConfig wires the external payment gateway. An empty SigningSecret
// switches signature verification into the dev-mode accept-all behavior; the
// payments service logs loudly when that happens.
type GatewayConfig struct {
	BaseURL       string        `envconfig:"MERCADERIA_GATEWAY_BASE_URL"`
	KeyID         string        `envconfig:"MERCADERIA_GATEWAY_KEY_ID"`
	SigningSecret string        `envconfig:"MERCADERIA_GATEWAY_SIGNING_SECRET"`
	Timeout       time.Duration `envconfig:"MERCADERIA_GATEWAY_TIMEOUT" default:"10s"`
}

type KafkaConfig struct {
	Brokers     []string `envconfig:"MERCADERIA_KAFKA_BROKERS" default:"localhost:9092"`
	OrdersTopic string   `envconfig:"MERCADERIA_KAFKA_ORDERS_TOPIC" default:"mercaderia.orders"`
}

type OutboxConfig struct {
	PollInterval time.Duration `envconfig:"MERCADERIA_OUTBOX_POLL_INTERVAL" default:"2s"`
	BatchSize    int           `envconfig:"MERCADERIA_OUTBOX_BATCH_SIZE" default:"100"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MERCADERIA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MERCADERIA_AUTO_MIGRATE" default:"false"`
}
