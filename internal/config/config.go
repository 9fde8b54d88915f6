// Package config loads service configuration from a YAML file with
// environment overrides. Every knob has a default, so the service starts
// with no file at all.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout_s"`
}

type GatheringConfig struct {
	ActivityType        string `mapstructure:"activity_type"`
	OverfetchMultiplier int    `mapstructure:"overfetch_multiplier"`
	MaxFetchLimit       int    `mapstructure:"max_fetch_limit"`
	PerActivityTimeoutS int    `mapstructure:"per_activity_timeout_s"`
	RecentRunsCount     int    `mapstructure:"recent_runs_count"`
}

type SourceConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	CallTimeout int     `mapstructure:"call_timeout_s"`
	RatePerSec  float64 `mapstructure:"rate_per_sec"`
	RateBurst   int     `mapstructure:"rate_burst"`
}

type LLMConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	TimeoutS int    `mapstructure:"timeout_s"`
}

type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	SessionTTLHrs int    `mapstructure:"session_ttl_hours"`
}

type ProfilesConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Gathering GatheringConfig `mapstructure:"gathering"`
	Source    SourceConfig    `mapstructure:"source"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Profiles  ProfilesConfig  `mapstructure:"profiles"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

func (c *Config) PerActivityTimeout() time.Duration {
	return time.Duration(c.Gathering.PerActivityTimeoutS) * time.Second
}

func (c *Config) SourceCallTimeout() time.Duration {
	return time.Duration(c.Source.CallTimeout) * time.Second
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutS) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Redis.SessionTTLHrs) * time.Hour
}

// Load reads configuration from CONFIG_PATH (or the given path when set),
// applying PACE42_* environment overrides on top. A missing file is not an
// error; an unreadable or malformed one is.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PACE42")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_s", 10)

	v.SetDefault("gathering.activity_type", "running")
	v.SetDefault("gathering.overfetch_multiplier", 5)
	v.SetDefault("gathering.max_fetch_limit", 50)
	v.SetDefault("gathering.per_activity_timeout_s", 30)
	v.SetDefault("gathering.recent_runs_count", 3)

	v.SetDefault("source.base_url", "http://garmin-mcp:8001")
	v.SetDefault("source.call_timeout_s", 20)
	v.SetDefault("source.rate_per_sec", 5.0)
	v.SetDefault("source.rate_burst", 10)

	v.SetDefault("llm.base_url", "http://llm-service:8000")
	v.SetDefault("llm.timeout_s", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.session_ttl_hours", 24)

	v.SetDefault("profiles.path", "/app/config/profiles.yaml")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 2112)
}
