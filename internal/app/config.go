package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores runtime configuration loaded from config/config.yaml and
// environment variables. Environment variables win.
type Config struct {
	AppEnv   string
	HTTPAddr string

	SeedPath    string
	SeedDBDSN   string
	SeedDBTable string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifeMins int

	WriteTokenHash       string
	WriteRateLimitPerMin int
	ShutdownTimeout      time.Duration
}

func LoadConfig() (Config, error) {
	return loadConfig(viper.New(), "./config")
}

func loadConfig(v *viper.Viper, configDir string) (Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetDefault("app_env", "development")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("seed_path", "./question_state.csv")
	v.SetDefault("seed_db_dsn", "")
	v.SetDefault("seed_db_table", "questions")
	v.SetDefault("db_max_open_conns", 4)
	v.SetDefault("db_max_idle_conns", 2)
	v.SetDefault("db_conn_max_lifetime_minutes", 30)
	v.SetDefault("write_token_hash", "")
	v.SetDefault("write_rate_limit_per_minute", 60)
	v.SetDefault("shutdown_timeout_seconds", 5)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("load config file: %w", err)
		}
	}

	return Config{
		AppEnv:               v.GetString("app_env"),
		HTTPAddr:             v.GetString("http_addr"),
		SeedPath:             strings.TrimSpace(v.GetString("seed_path")),
		SeedDBDSN:            strings.TrimSpace(v.GetString("seed_db_dsn")),
		SeedDBTable:          v.GetString("seed_db_table"),
		DBMaxOpenConns:       positiveOr(v.GetInt("db_max_open_conns"), 4),
		DBMaxIdleConns:       positiveOr(v.GetInt("db_max_idle_conns"), 2),
		DBConnMaxLifeMins:    positiveOr(v.GetInt("db_conn_max_lifetime_minutes"), 30),
		WriteTokenHash:       strings.TrimSpace(v.GetString("write_token_hash")),
		WriteRateLimitPerMin: positiveOr(v.GetInt("write_rate_limit_per_minute"), 60),
		ShutdownTimeout:      time.Duration(positiveOr(v.GetInt("shutdown_timeout_seconds"), 5)) * time.Second,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
