// Package config loads service configuration from an optional YAML file with
// environment-variable overrides, falling back to defaults that keep the
// service bootable with no file at all.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

// Config is the root configuration.
type Config struct {
	Server     ServerConfig   `mapstructure:"server"`
	DataSource string         `mapstructure:"data_source"`
	Database   DatabaseConfig `mapstructure:"database"`
	Redis      RedisConfig    `mapstructure:"redis"`
	GitHub     GitHubConfig   `mapstructure:"github"`
	Quota      QuotaConfig    `mapstructure:"quota"`
	Dashboard  DashboardConfig `mapstructure:"dashboard"`
	Logger     LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig describes the HTTP server.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	Burst        int           `mapstructure:"burst"`
}

// DatabaseConfig describes the Postgres connection. An empty URL disables
// the database source entirely.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// RedisConfig describes the optional stats cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GitHubConfig describes the snapshot host.
type GitHubConfig struct {
	Repo     string `mapstructure:"repo"`
	Branch   string `mapstructure:"branch"`
	BaseURL  string `mapstructure:"base_url"`
	Token    string `mapstructure:"token"`
	LocalDir string `mapstructure:"local_dir"`
}

// SnapshotBaseURL resolves the document host: an explicit base URL wins,
// otherwise it is derived from repo and branch.
func (g GitHubConfig) SnapshotBaseURL() string {
	if g.BaseURL != "" {
		return g.BaseURL
	}
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/data", g.Repo, g.Branch)
}

// QuotaConfig describes the quota monitor.
type QuotaConfig struct {
	DefinitionsFile string        `mapstructure:"definitions_file"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

// DashboardConfig describes the display cache.
type DashboardConfig struct {
	CachePath string `mapstructure:"cache_path"`
}

// LoggerConfig tunes zap.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PreferredSource interprets the DATA_SOURCE selector. Unrecognized values
// pass through unchanged so the resolver can log them before falling back to
// the fixed order; an empty value means temp-data.
func (c *Config) PreferredSource() types.SourceName {
	if c.DataSource == "" {
		return types.SourceTempData
	}
	return types.SourceName(c.DataSource)
}

// Load reads config.yaml (from the working directory or ./configs), merges
// environment overrides, and applies defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No file: env and defaults carry the day.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.rate_limit", 100.0)
	v.SetDefault("server.burst", 20)
	v.SetDefault("data_source", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("github.repo", "ksy2728/AI-GO")
	v.SetDefault("github.branch", "main")
	v.SetDefault("quota.poll_interval", 5*time.Minute)
	v.SetDefault("dashboard.cache_path", "data/dashboard-cache.json")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}
