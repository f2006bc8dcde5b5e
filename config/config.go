package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"candleservice/internal/aggregator"
	"candleservice/pkg/timezone"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Source   SourceConfig   `mapstructure:"source"`
	Candle   CandleConfig   `mapstructure:"candle"`
	Index    IndexConfig    `mapstructure:"index"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DefaultTimezone string        `mapstructure:"default_timezone"` // zone of year/month/day/hour when ?tz is absent
}

// SourceConfig selects where ticks are read from.
type SourceConfig struct {
	Kind          string       `mapstructure:"kind"`           // "csv", "postgres", "sqlite" or "ws"
	Timezone      string       `mapstructure:"timezone"`       // zone of timestamps without an offset
	ProgressEvery int          `mapstructure:"progress_every"` // log progress every N rows (0 disables)
	CSV           CSVConfig    `mapstructure:"csv"`
	SQLite        SQLiteConfig `mapstructure:"sqlite"`
	WS            WSConfig     `mapstructure:"ws"`
}

type CSVConfig struct {
	Path string `mapstructure:"path"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type WSConfig struct {
	URL           string        `mapstructure:"url"`
	Subscribe     string        `mapstructure:"subscribe"`      // raw message sent after connecting (optional)
	Capture       time.Duration `mapstructure:"capture"`        // how long to record ticks
	MaxRows       int           `mapstructure:"max_rows"`       // stop after N rows (0 = unlimited)
	MaxReconnects int           `mapstructure:"max_reconnects"` // reconnect attempts on read errors
	Timeout       time.Duration `mapstructure:"timeout"`        // dial timeout
}

type CandleConfig struct {
	Fallback string `mapstructure:"fallback"` // "lexical", "temporal" or "none"
}

type IndexConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"` // 0 disables periodic rebuilds
}

// LogConfig configures the zap logger and its lumberjack file output.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.default_timezone", "UTC")

	v.SetDefault("source.kind", "csv")
	v.SetDefault("source.timezone", "UTC")
	v.SetDefault("source.progress_every", 10000)
	v.SetDefault("source.csv.path", "order_books.csv")
	v.SetDefault("source.sqlite.path", "order_books.db")
	v.SetDefault("source.ws.url", "")
	v.SetDefault("source.ws.subscribe", "")
	v.SetDefault("source.ws.capture", time.Minute)
	v.SetDefault("source.ws.max_rows", 0)
	v.SetDefault("source.ws.max_reconnects", 3)
	v.SetDefault("source.ws.timeout", 10*time.Second)

	v.SetDefault("candle.fallback", "lexical")
	v.SetDefault("index.refresh_interval", time.Duration(0))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "dev")
	v.SetDefault("log.output_file", "")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "candles")
	v.SetDefault("postgres.parameter_prefix", "")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
}

// Load loads application configuration using Viper.
// It reads config.yaml (next to the binary, under ./config or the working
// directory) and overrides it with environment variables and .env.
func Load() *Config {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := LoadFrom(os.Getenv("CANDLE_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom reads the configuration from path. An empty path searches the
// default locations; a missing config file there is not an error and the
// defaults plus environment are used.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
	}

	// Support environment variables with dot notation (e.g., SOURCE_CSV_PATH)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values Load cannot type-check.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case "csv", "postgres", "sqlite", "ws":
	default:
		return fmt.Errorf("unknown source.kind %q", c.Source.Kind)
	}
	if c.Source.Kind == "ws" && c.Source.WS.URL == "" {
		return errors.New("source.ws.url is required for the ws source")
	}
	if _, err := timezone.Load(c.Source.Timezone); err != nil {
		return fmt.Errorf("source.timezone: %w", err)
	}
	if _, err := timezone.Load(c.Server.DefaultTimezone); err != nil {
		return fmt.Errorf("server.default_timezone: %w", err)
	}
	if _, err := aggregator.ParseFallback(c.Candle.Fallback); err != nil {
		return err
	}
	if c.Index.RefreshInterval < 0 {
		return errors.New("index.refresh_interval must not be negative")
	}
	return nil
}
