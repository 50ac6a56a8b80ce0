package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/analysis"
)

// ConfigFileEnv names the optional YAML/JSON config file
const ConfigFileEnv = "BLC_CONFIG"

// Config is the service and CLI configuration. Every field can be set from
// the environment using the upper-cased mapstructure key.
type Config struct {
	Port                   string        `mapstructure:"port"`
	DataDir                string        `mapstructure:"data_dir"`
	YouTubeAPIKey          string        `mapstructure:"youtube_api_key"`
	RedisAddr              string        `mapstructure:"redis_addr"`
	RedisPassword          string        `mapstructure:"redis_password"`
	RedisDB                int           `mapstructure:"redis_db"`
	CacheTTL               time.Duration `mapstructure:"cache_ttl"`
	RateLimitPerMin        int           `mapstructure:"rate_limit_per_min"`
	CollectRateLimitPerMin int           `mapstructure:"collect_rate_limit_per_min"`
	MaxVideos              int           `mapstructure:"max_videos"`
	MonthsBack             int           `mapstructure:"months_back"`
	MaxComments            int           `mapstructure:"max_comments"`
	CommentWorkers         int           `mapstructure:"comment_workers"`
	DefaultVertical        string        `mapstructure:"default_vertical"`
	LeaderboardRefresh     time.Duration `mapstructure:"leaderboard_refresh"`
	RetentionDays          int           `mapstructure:"retention_days"`
	CleanupInterval        time.Duration `mapstructure:"cleanup_interval"`
	CORSOrigins            []string      `mapstructure:"cors_origins"`
	LogLevel               string        `mapstructure:"log_level"`
	GinMode                string        `mapstructure:"gin_mode"`
}

var defaults = map[string]any{
	"port":                       "8080",
	"data_dir":                   "./data",
	"youtube_api_key":            "",
	"redis_addr":                 "",
	"redis_password":             "",
	"redis_db":                   0,
	"cache_ttl":                  "15m",
	"rate_limit_per_min":         60,
	"collect_rate_limit_per_min": 5,
	"max_videos":                 50,
	"months_back":                6,
	"max_comments":               100,
	"comment_workers":            4,
	"default_vertical":           analysis.DefaultVertical,
	"leaderboard_refresh":        "15m",
	"retention_days":             365,
	"cleanup_interval":           "24h",
	"cors_origins":               []string{"*"},
	"log_level":                  "info",
	"gin_mode":                   "release",
}

// BenchmarkDir is where per-vertical benchmark override files live
func (c *Config) BenchmarkDir() string {
	return filepath.Join(c.DataDir, "benchmarks")
}

// Load reads ./.env, the file named by BLC_CONFIG and the environment
func Load() (*Config, error) {
	return LoadFrom(".env", os.Getenv(ConfigFileEnv))
}

// LoadFrom resolves configuration with precedence environment > envFile >
// configFile > defaults. Empty paths are skipped; a missing envFile is not an
// error, a missing configFile is.
func LoadFrom(envFile, configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	if envFile != "" {
		dotenv, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading %s: %w", envFile, err)
		}
		for name, value := range dotenv {
			if _, set := os.LookupEnv(name); set {
				continue
			}
			v.Set(strings.ToLower(name), value)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if cfg.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive, got %s", cfg.CacheTTL)
	}
	if cfg.LeaderboardRefresh <= 0 || cfg.CleanupInterval <= 0 {
		return fmt.Errorf("leaderboard_refresh and cleanup_interval must be positive")
	}

	positive := map[string]int{
		"rate_limit_per_min":         cfg.RateLimitPerMin,
		"collect_rate_limit_per_min": cfg.CollectRateLimitPerMin,
		"max_videos":                 cfg.MaxVideos,
		"months_back":                cfg.MonthsBack,
		"max_comments":               cfg.MaxComments,
		"comment_workers":            cfg.CommentWorkers,
		"retention_days":             cfg.RetentionDays,
	}
	for key, value := range positive {
		if value < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", key, value)
		}
	}

	if !analysis.ValidVertical(cfg.DefaultVertical) {
		return fmt.Errorf("invalid default_vertical: %q", cfg.DefaultVertical)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level: %q. Must be 'debug', 'info', 'warn' or 'error'", cfg.LogLevel)
	}

	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid gin_mode: %s. Must be 'debug', 'release', or 'test'", cfg.GinMode)
	}

	return nil
}
