package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	OTel     OTelConfig     `mapstructure:"otel"`
	Sweeper  SweeperConfig  `mapstructure:"sweeper"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
}

func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres or memory
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectRetries  int           `mapstructure:"connect_retries"`
	Migrate         bool          `mapstructure:"migrate"`
}

type RedisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	EventTTL   time.Duration `mapstructure:"event_ttl"`
	WebhookTTL time.Duration `mapstructure:"webhook_ttl"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Currency      string `mapstructure:"currency"`
}

// GatewayConfig bounds every outbound call to the payment gateway.
type GatewayConfig struct {
	Driver          string        `mapstructure:"driver"` // stripe or fake
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type KafkaConfig struct {
	Brokers           []string `mapstructure:"brokers"`
	ClientID          string   `mapstructure:"client_id"`
	CompensationTopic string   `mapstructure:"compensation_topic"`
}

type OTelConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	CollectorAddr string  `mapstructure:"collector_addr"`
	SampleRatio   float64 `mapstructure:"sample_ratio"`
}

type SweeperConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	MinAge    time.Duration `mapstructure:"min_age"`
	BatchSize int           `mapstructure:"batch_size"`
}

// Load reads configuration from an optional .env file and the environment.
// Keys map to variables by upper-casing and replacing dots, e.g.
// STRIPE_SECRET_KEY for stripe.secret_key.
func Load() (*Config, error) {
	return load(viper.New(), ".env")
}

func load(v *viper.Viper, envFile string) (*Config, error) {
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		// a missing .env is fine, the environment may carry everything
		_ = v.ReadInConfig()
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to bind config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rsvp-api")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	v.SetDefault("storage.driver", "postgres")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "scalable_rsvp")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.connect_retries", 10)
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.event_ttl", 30*time.Second)
	v.SetDefault("redis.webhook_ttl", 72*time.Hour)

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.currency", "usd")

	v.SetDefault("gateway.driver", "stripe")
	v.SetDefault("gateway.timeout", 10*time.Second)
	v.SetDefault("gateway.max_retries", 3)
	v.SetDefault("gateway.initial_interval", 200*time.Millisecond)
	v.SetDefault("gateway.max_interval", 2*time.Second)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.client_id", "rsvp-api")
	v.SetDefault("kafka.compensation_topic", "rsvp.compensation")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "rsvp-api")
	v.SetDefault("otel.collector_addr", "localhost:4317")
	v.SetDefault("otel.sample_ratio", 1.0)

	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.interval", time.Minute)
	v.SetDefault("sweeper.min_age", 5*time.Minute)
	v.SetDefault("sweeper.batch_size", 100)
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}

	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be postgres or memory, got %q", c.Storage.Driver))
	}

	switch c.Gateway.Driver {
	case "stripe":
		if c.Stripe.SecretKey == "" {
			errs = append(errs, errors.New("stripe.secret_key is required for the stripe gateway"))
		}
		if c.Stripe.WebhookSecret == "" {
			errs = append(errs, errors.New("stripe.webhook_secret is required for the stripe gateway"))
		}
	case "fake":
		if c.App.IsProduction() {
			errs = append(errs, errors.New("fake gateway is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("gateway.driver must be stripe or fake, got %q", c.Gateway.Driver))
	}

	if c.Gateway.Timeout <= 0 {
		errs = append(errs, errors.New("gateway.timeout must be positive"))
	}
	if c.Gateway.MaxRetries < 0 {
		errs = append(errs, errors.New("gateway.max_retries cannot be negative"))
	}

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}

	if c.Sweeper.Enabled && c.Sweeper.Interval <= 0 {
		errs = append(errs, errors.New("sweeper.interval must be positive"))
	}

	return errors.Join(errs...)
}
