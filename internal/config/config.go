package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Screener ScreenerConfig `yaml:"screener" mapstructure:"screener"`
	Schedule ScheduleConfig `yaml:"schedule" mapstructure:"schedule"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the market-data database.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	APIKey         string   `yaml:"api_key" mapstructure:"api_key"`
	APIKeyHeader   string   `yaml:"api_key_header" mapstructure:"api_key_header"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// ScreenerConfig tunes the query engine.
type ScreenerConfig struct {
	FuzzyWindowDays int `yaml:"fuzzy_window_days" mapstructure:"fuzzy_window_days"`
}

// ScheduleConfig configures the daily snapshot job.
type ScheduleConfig struct {
	Enabled bool         `yaml:"enabled" mapstructure:"enabled"`
	Spec    string       `yaml:"spec" mapstructure:"spec"`
	Watch   []WatchEntry `yaml:"watch" mapstructure:"watch"`
}

// WatchEntry is one (country, category) pair the snapshot job refreshes.
type WatchEntry struct {
	Country  string `yaml:"country" mapstructure:"country"`
	Category string `yaml:"category" mapstructure:"category"`
	Top      int    `yaml:"top" mapstructure:"top"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultAPIKeyHeader is the request header carrying the shared secret.
const DefaultAPIKeyHeader = "thefunscreener-api-key"

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FUNSCREENER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("server.port", 8033)
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.api_key_header", DefaultAPIKeyHeader)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("screener.fuzzy_window_days", 5)
	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.spec", "0 0 0 * * *")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command needs are present.
func (c *Config) Validate(mode string) error {
	var missing []string

	switch mode {
	case "serve":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url (FUNSCREENER_STORE_DATABASE_URL)")
		}
		if c.Server.APIKey == "" {
			missing = append(missing, "server.api_key (FUNSCREENER_SERVER_API_KEY)")
		}
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return eris.Errorf("config: invalid server.port %d", c.Server.Port)
		}
	case "query", "migrate":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url (FUNSCREENER_STORE_DATABASE_URL)")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Screener.FuzzyWindowDays < 0 {
		return eris.Errorf("config: invalid screener.fuzzy_window_days %d", c.Screener.FuzzyWindowDays)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings for %s: %s", mode, strings.Join(missing, ", "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
