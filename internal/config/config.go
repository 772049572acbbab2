package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SCHEDULER_DATABASE_HOST.
const EnvPrefix = "SCHEDULER"

type Config struct {
	Server       ServerConfig       `mapstructure:"server" envconfig:"server"`
	Database     DatabaseConfig     `mapstructure:"database" envconfig:"database"`
	Redis        RedisConfig        `mapstructure:"redis" envconfig:"redis"`
	Cache        CacheConfig        `mapstructure:"cache" envconfig:"cache"`
	Scheduling   SchedulingConfig   `mapstructure:"scheduling" envconfig:"scheduling"`
	JWT          JWTConfig          `mapstructure:"jwt" envconfig:"jwt"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit" envconfig:"rate_limit"`
	Security     SecurityConfig     `mapstructure:"security" envconfig:"security"`
	Outbox       OutboxConfig       `mapstructure:"outbox" envconfig:"outbox"`
	Notification NotificationConfig `mapstructure:"notification" envconfig:"notification"`
	Log          LogConfig          `mapstructure:"log" envconfig:"log"`
	Metrics      MetricsConfig      `mapstructure:"metrics" envconfig:"metrics"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" envconfig:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" envconfig:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" envconfig:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" envconfig:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" envconfig:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver         string        `mapstructure:"driver" envconfig:"driver"`
	Host           string        `mapstructure:"host" envconfig:"host"`
	Port           int           `mapstructure:"port" envconfig:"port"`
	User           string        `mapstructure:"user" envconfig:"user"`
	Password       string        `mapstructure:"password" envconfig:"password"`
	Name           string        `mapstructure:"name" envconfig:"name"`
	SSLMode        string        `mapstructure:"sslmode" envconfig:"sslmode"`
	MaxOpenConns   int           `mapstructure:"max_open_conns" envconfig:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns" envconfig:"max_idle_conns"`
	ConnMaxLife    time.Duration `mapstructure:"conn_max_lifetime" envconfig:"conn_max_lifetime"`
	MigrateOnStart bool          `mapstructure:"migrate_on_start" envconfig:"migrate_on_start"`
}

// DSN builds a lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"url"`
	MaxRetries   int           `mapstructure:"max_retries" envconfig:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" envconfig:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size" envconfig:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns" envconfig:"min_idle_conns"`
}

type CacheConfig struct {
	// Driver is "redis", "memory" or "none".
	Driver    string        `mapstructure:"driver" envconfig:"driver"`
	SlotTTL   time.Duration `mapstructure:"slot_ttl" envconfig:"slot_ttl"`
	DoctorTTL time.Duration `mapstructure:"doctor_ttl" envconfig:"doctor_ttl"`
}

type SchedulingConfig struct {
	Timezone       string `mapstructure:"timezone" envconfig:"timezone"`
	MaxAdvanceDays int    `mapstructure:"max_advance_days" envconfig:"max_advance_days"`
}

// Location resolves Timezone, defaulting to UTC.
func (c SchedulingConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduling.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

type JWTConfig struct {
	Secret string `mapstructure:"secret" envconfig:"secret"`
	Issuer string `mapstructure:"issuer" envconfig:"issuer"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" envconfig:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" envconfig:"requests_per_second"`
	Burst             int     `mapstructure:"burst" envconfig:"burst"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" envconfig:"allowed_origins"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size" envconfig:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval" envconfig:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts" envconfig:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" envconfig:"retry_delay"`
	MaxRetries    int           `mapstructure:"max_retries" envconfig:"max_retries"`
	Channel       string        `mapstructure:"channel" envconfig:"channel"`
	Retention     time.Duration `mapstructure:"retention" envconfig:"retention"`
	CleanupEvery  time.Duration `mapstructure:"cleanup_interval" envconfig:"cleanup_interval"`
}

type NotificationConfig struct {
	Enabled  bool   `mapstructure:"enabled" envconfig:"enabled"`
	SMTPHost string `mapstructure:"smtp_host" envconfig:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port" envconfig:"smtp_port"`
	Username string `mapstructure:"username" envconfig:"username"`
	Password string `mapstructure:"password" envconfig:"password"`
	From     string `mapstructure:"from" envconfig:"from"`
	// To is the clinic mailbox that receives appointment notices.
	To string `mapstructure:"to" envconfig:"to"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" envconfig:"level"`
	Format string `mapstructure:"format" envconfig:"format"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" envconfig:"enabled"`
	Namespace string `mapstructure:"namespace" envconfig:"namespace"`
	Path      string `mapstructure:"path" envconfig:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "scheduling")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.slot_ttl", 5*time.Minute)
	v.SetDefault("cache.doctor_ttl", 10*time.Minute)

	v.SetDefault("scheduling.timezone", "UTC")
	v.SetDefault("scheduling.max_advance_days", 90)

	v.SetDefault("jwt.issuer", "clinic-auth")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("security.allowed_origins", []string{"*"})

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", 2*time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", 500*time.Millisecond)
	v.SetDefault("outbox.max_retries", 10)
	v.SetDefault("outbox.channel", "scheduling.events")
	v.SetDefault("outbox.retention", 7*24*time.Hour)
	v.SetDefault("outbox.cleanup_interval", time.Hour)

	v.SetDefault("notification.smtp_port", 587)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "scheduling")
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads an optional .env file, then config.yml (from path if given,
// otherwise from the usual locations), then SCHEDULER_* environment
// variables. A missing config file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("database.driver must be postgres or memory, got %q", c.Database.Driver)
	}
	switch c.Cache.Driver {
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("cache.driver redis requires redis.url")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("cache.driver must be redis, memory or none, got %q", c.Cache.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Scheduling.MaxAdvanceDays < 0 {
		return fmt.Errorf("scheduling.max_advance_days must not be negative")
	}
	if _, err := c.Scheduling.Location(); err != nil {
		return err
	}
	return nil
}
