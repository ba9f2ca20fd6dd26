package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from files and environment
// variables.
type Config struct {
	Env            string   `mapstructure:"env"`  // local, dev, prod
	Port           string   `mapstructure:"port"` // HTTP listen port
	DatabaseURL    string   `mapstructure:"-"`    // postgres DSN; empty selects sqlite
	SQLitePath     string   `mapstructure:"sqlite_path"`
	SeedPath       string   `mapstructure:"seed_path"` // JSON fixture loaded when the quiz table is empty
	SubmitGraceSec int      `mapstructure:"submit_grace_sec"`
	SecureCookies  bool     `mapstructure:"secure_cookies"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig reads configuration from an optional config file and from
// environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetDefault("env", "local")
	v.SetDefault("port", "8080")
	v.SetDefault("sqlite_path", "quiz.db")
	v.SetDefault("seed_path", "data/quizzes.json")
	v.SetDefault("submit_grace_sec", 30)
	v.SetDefault("secure_cookies", false)
	v.SetDefault("allowed_origins", []string{"https://hocviet.edu.vn"})

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("env", "APP_ENV")
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("secure_cookies", "SECURE_COOKIES")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	cfg.DatabaseURL = v.GetString("database_url")

	if cfg.SubmitGraceSec < 0 {
		return nil, fmt.Errorf("%w: submit_grace_sec must be >= 0", ErrInvalidConfig)
	}
	return &cfg, nil
}
