package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DatabaseDriverPostgres = "postgres"
	DatabaseDriverMemory   = "memory"
)

type Config struct {
	App       AppConfig       `yaml:"app" mapstructure:"app"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Redis     RedisConfig     `yaml:"redis" mapstructure:"redis"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
}

type AppConfig struct {
	Environment    string   `yaml:"environment" mapstructure:"environment"`
	Host           string   `yaml:"host" mapstructure:"host"`
	Port           int      `yaml:"port" mapstructure:"port"`
	LogLevel       string   `yaml:"log_level" mapstructure:"log_level"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RateLimit      int      `yaml:"rate_limit" mapstructure:"rate_limit"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	DBName   string `yaml:"db_name" mapstructure:"db_name"`
	SSLMode  string `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxConns int    `yaml:"max_conns" mapstructure:"max_conns"`
}

type RedisConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

type EngineConfig struct {
	FeedConcurrency int `yaml:"feed_concurrency" mapstructure:"feed_concurrency"`
	LockTTLSeconds  int `yaml:"lock_ttl_seconds" mapstructure:"lock_ttl_seconds"`
	LockWaitSeconds int `yaml:"lock_wait_seconds" mapstructure:"lock_wait_seconds"`
}

type SchedulerConfig struct {
	Enabled          bool   `yaml:"enabled" mapstructure:"enabled"`
	SnapshotSchedule string `yaml:"snapshot_schedule" mapstructure:"snapshot_schedule"`
	DecaySchedule    string `yaml:"decay_schedule" mapstructure:"decay_schedule"`
	ScarcitySchedule string `yaml:"scarcity_schedule" mapstructure:"scarcity_schedule"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.rate_limit", 600)

	v.SetDefault("database.driver", DatabaseDriverPostgres)
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)

	v.SetDefault("redis.port", "6379")

	v.SetDefault("engine.feed_concurrency", 8)
	v.SetDefault("engine.lock_ttl_seconds", 10)
	v.SetDefault("engine.lock_wait_seconds", 5)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.snapshot_schedule", "0 * * * *")
	v.SetDefault("scheduler.decay_schedule", "0 3 * * *")
	v.SetDefault("scheduler.scarcity_schedule", "*/30 * * * *")
}

func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Database.Host = getEnv("DB_HOST", config.Database.Host)
	config.Database.User = getEnv("DB_USER", config.Database.User)
	config.Database.Password = getEnv("DB_PASSWORD", config.Database.Password)
	config.Database.DBName = getEnv("DB_NAME", config.Database.DBName)
	config.Database.Port = getEnv("DB_PORT", config.Database.Port)
	config.Redis.Host = getEnv("REDIS_HOST", config.Redis.Host)
	config.Redis.Password = getEnv("REDIS_PASSWORD", config.Redis.Password)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DatabaseDriverMemory:
		if c.App.Environment == "production" {
			return fmt.Errorf("database.driver=memory is not allowed in production")
		}
	case DatabaseDriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}

		if c.Database.Port == "" {
			return fmt.Errorf("database.port is required")
		}

		if c.Database.DBName == "" {
			return fmt.Errorf("database.db_name is required")
		}

		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	// Multiple engine replicas share trigger cooldowns, so production needs the distributed lock.
	if c.App.Environment == "production" {
		if c.Redis.Host == "" {
			return fmt.Errorf("redis.host is required for production")
		}

		if c.Redis.Port == "" {
			return fmt.Errorf("redis.port is required for production")
		}
	}

	if c.Engine.FeedConcurrency <= 0 {
		c.Engine.FeedConcurrency = 1
	}

	if c.Engine.LockTTLSeconds <= 0 {
		return fmt.Errorf("engine.lock_ttl_seconds must be positive")
	}

	return nil
}

func (c *Config) SafeString() string {
	return fmt.Sprintf(`Config:
		Environment: %s
		Listen: %s:%d
		Log Level: %s
		Rate Limit: %d/min

		Database:
			Driver: %s
			Host: %s:%s
			User: %s
			Password: %s
			Database: %s
			SSL Mode: %s
			Max Connections: %d

		Redis:
			Host: %s:%s
			Password: %s
			Database: %d

		Engine:
			Feed Concurrency: %d
			Lock TTL: %ds
			Lock Wait: %ds

		Scheduler:
			Enabled: %t
			Snapshots: %s
			Decay: %s
			Scarcity: %s
		`,
		c.App.Environment,
		c.App.Host,
		c.App.Port,
		c.App.LogLevel,
		c.App.RateLimit,
		c.Database.Driver,
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		maskSecret(c.Database.Password),
		c.Database.DBName,
		c.Database.SSLMode,
		c.Database.MaxConns,
		c.Redis.Host,
		c.Redis.Port,
		maskSecret(c.Redis.Password),
		c.Redis.DB,
		c.Engine.FeedConcurrency,
		c.Engine.LockTTLSeconds,
		c.Engine.LockWaitSeconds,
		c.Scheduler.Enabled,
		c.Scheduler.SnapshotSchedule,
		c.Scheduler.DecaySchedule,
		c.Scheduler.ScarcitySchedule,
	)
}

func getEnv(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	return value
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}

	length := len(s)
	if length <= 8 {
		return strings.Repeat("*", length)
	}

	return s[:4] + "..." + s[length-4:]
}
