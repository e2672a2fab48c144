package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type AppConfig struct {
	API       *APIConfig       `mapstructure:"api"`
	Gin       *GinConfig       `mapstructure:"gin"`
	Log       *LogConfig       `mapstructure:"log"`
	Postgres  *PostgresConfig  `mapstructure:"postgres"`
	Cache     *CacheConfig     `mapstructure:"cache"`
	Admission *AdmissionConfig `mapstructure:"admission"`
	Occupancy *OccupancyConfig `mapstructure:"occupancy"`
}

type APIConfig struct {
	Environment        string        `mapstructure:"environment"`
	BaseURL            string        `mapstructure:"base_url"`
	Port               string        `mapstructure:"port"`
	AllowedCORSDomains []string      `mapstructure:"allowed_cors_domains"`
	JWTSigningKey      string        `mapstructure:"jwt_signing_key"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DB              string        `mapstructure:"db"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode)
}

const (
	CacheBackendRedis    = "redis"
	CacheBackendMemory   = "memory"
	CacheBackendDisabled = "disabled"
)

type CacheConfig struct {
	Backend         string        `mapstructure:"backend"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	OpTimeout       time.Duration `mapstructure:"op_timeout"`
	ValueTTL        time.Duration `mapstructure:"value_ttl"`
	NotFoundTTL     time.Duration `mapstructure:"not_found_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type AdmissionConfig struct {
	DefaultGraceWindow time.Duration `mapstructure:"default_grace_window"`
	MaxBulkItems       int           `mapstructure:"max_bulk_items"`
}

type OccupancyConfig struct {
	QueueSize        int           `mapstructure:"queue_size"`
	Workers          int           `mapstructure:"workers"`
	StaleAfter       time.Duration `mapstructure:"stale_after"`
	RecomputeTimeout time.Duration `mapstructure:"recompute_timeout"`
	SubscriberBuffer int           `mapstructure:"subscriber_buffer"`
}

var defaults = map[string]interface{}{
	"api.environment":                "development",
	"api.base_url":                   "localhost:8080",
	"api.port":                       "8080",
	"api.allowed_cors_domains":       []string{"http://localhost:3000"},
	"api.jwt_signing_key":            "",
	"api.request_timeout":            "10s",
	"gin.mode":                       "debug",
	"log.level":                      "info",
	"postgres.host":                  "localhost",
	"postgres.port":                  "5432",
	"postgres.user":                  "gate",
	"postgres.password":              "",
	"postgres.db":                    "gate",
	"postgres.ssl_mode":              "disable",
	"postgres.max_open_conns":        20,
	"postgres.max_idle_conns":        10,
	"postgres.conn_max_lifetime":     "30m",
	"cache.backend":                  CacheBackendMemory,
	"cache.redis_addr":               "localhost:6379",
	"cache.redis_password":           "",
	"cache.redis_db":                 0,
	"cache.op_timeout":               "200ms",
	"cache.value_ttl":                "0s",
	"cache.not_found_ttl":            "1m",
	"cache.cleanup_interval":         "1m",
	"admission.default_grace_window": "2h",
	"admission.max_bulk_items":       500,
	"occupancy.queue_size":           1024,
	"occupancy.workers":              2,
	"occupancy.stale_after":          "30s",
	"occupancy.recompute_timeout":    "5s",
	"occupancy.subscriber_buffer":    8,
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the YAML file at path. Environment variables override file
// values, e.g. CACHE_BACKEND for cache.backend.
func Load(path string) (*AppConfig, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	return decode(v)
}

// Watch calls onChange with the reloaded config each time the file at path
// is written.
func Watch(path string, onChange func(conf *AppConfig, event fsnotify.Event)) error {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		conf, err := decode(v)
		if err != nil {
			return
		}
		onChange(conf, event)
	})
	v.WatchConfig()

	return nil
}

func decode(v *viper.Viper) (*AppConfig, error) {
	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func (c *AppConfig) validate() error {
	switch c.Cache.Backend {
	case CacheBackendRedis, CacheBackendMemory, CacheBackendDisabled:
	default:
		return fmt.Errorf("cache.backend must be one of redis, memory, disabled, got %q", c.Cache.Backend)
	}

	if c.Admission.MaxBulkItems < 0 {
		return fmt.Errorf("admission.max_bulk_items must not be negative")
	}

	return nil
}
