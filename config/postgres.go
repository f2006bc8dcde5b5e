package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the configuration for connecting to the PostgreSQL
// (or Supabase) database holding the order_books tick table.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	// ParameterPrefix is the SSM Parameter Store path holding HOST, USER and
	// PASSWORD in prod (e.g. "/candleservice/db/").
	ParameterPrefix string `mapstructure:"parameter_prefix"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN builds the lib/pq style connection string. In prod the host, user and
// password come from SSM Parameter Store; a parameter that cannot be read
// falls back to the configured value.
func (cfg *PostgresConfig) DSN(env string) string {
	host, user, password := cfg.Host, cfg.User, cfg.Password
	if env == "prod" {
		host = firstNonEmpty(getParameterStoreValue(cfg.ParameterPrefix+"HOST", true), host)
		user = firstNonEmpty(getParameterStoreValue(cfg.ParameterPrefix+"USER", true), user)
		password = firstNonEmpty(getParameterStoreValue(cfg.ParameterPrefix+"PASSWORD", true), password)
	}
	return cfg.dsn(host, user, password, cfg.DBName)
}

// AdminDSN is DSN pointed at the maintenance "postgres" database, used to
// create the tick database when it does not exist yet.
func (cfg *PostgresConfig) AdminDSN() string {
	return cfg.dsn(cfg.Host, cfg.User, cfg.Password, "postgres")
}

func (cfg *PostgresConfig) dsn(host, user, password, dbName string) string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, dbName, cfg.SSLMode,
	)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	baseCtx := context.Background()
	ctxWithTimeout, cancel := context.WithTimeout(baseCtx, 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctxWithTimeout, input)
	if err != nil {
		return ""
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
