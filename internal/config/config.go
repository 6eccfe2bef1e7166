// Package config loads application configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port   int    `mapstructure:"PORT"`
	DBPath string `mapstructure:"DB_PATH"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	// Redis is optional; when RedisAddr is empty the directory cache is
	// disabled and every request goes to the store.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// GitHub OAuth is optional; the routes are registered only when a
	// client ID and secret are configured.
	GitHubClientID     string `mapstructure:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `mapstructure:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `mapstructure:"GITHUB_CALLBACK_URL"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present (local development convenience; real
// deployments set real environment variables).
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("config: loading .env: %w", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", 8080)
	v.SetDefault("DB_PATH", "data/snipvault.db")
	v.SetDefault("REDIS_DB", 0)

	// AutomaticEnv alone doesn't feed Unmarshal — each key needs a binding.
	for _, key := range []string{
		"PORT", "DB_PATH", "JWT_SECRET",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "GITHUB_CALLBACK_URL",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET must be set")
	}
	if cfg.GitHubEnabled() && cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", cfg.Port)
	}

	return &cfg, nil
}

// GitHubEnabled reports whether the optional GitHub OAuth login is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}
