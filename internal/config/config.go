package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string   `mapstructure:"PORT"`
	Env                   string   `mapstructure:"ENV"`
	BackendURL            string   `mapstructure:"BACKEND_URL"`
	BackendTimeoutSeconds int      `mapstructure:"BACKEND_TIMEOUT_SECONDS"`
	SessionSigningKey     string   `mapstructure:"SESSION_SIGNING_KEY"`
	SessionTTLMinutes     int      `mapstructure:"SESSION_TTL_MINUTES"`
	CORSOrigins           []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("BACKEND_URL", "http://localhost:8000")
	v.SetDefault("BACKEND_TIMEOUT_SECONDS", 30)
	v.SetDefault("SESSION_TTL_MINUTES", 120)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("BACKEND_URL")
	v.BindEnv("BACKEND_TIMEOUT_SECONDS")
	v.BindEnv("SESSION_SIGNING_KEY")
	v.BindEnv("SESSION_TTL_MINUTES")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is required")
	}
	if cfg.BackendTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("BACKEND_TIMEOUT_SECONDS must be positive, got %d", cfg.BackendTimeoutSeconds)
	}

	if cfg.SessionSigningKey != "" {
		if _, err := hex.DecodeString(cfg.SessionSigningKey); err != nil {
			return nil, fmt.Errorf("SESSION_SIGNING_KEY must be hex-encoded: %w", err)
		}
	} else if !cfg.IsDev() {
		return nil, fmt.Errorf("SESSION_SIGNING_KEY is required when ENV is not development")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Console is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: A throwaway session signing key is generated at startup,")
		log.Println("WARNING: so workflow sessions do not survive a restart.")
		log.Println("WARNING: Set ENV=production and SESSION_SIGNING_KEY for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the console is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// BackendTimeout returns the request timeout used for every backend call.
// There is deliberately no per-endpoint override and no retry policy.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutSeconds) * time.Second
}

// SessionTTL returns how long an idle workflow session is kept before the
// store sweeps it.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// SigningKey decodes the configured session signing key. Callers must only
// use this after Load has validated the hex encoding.
func (c *Config) SigningKey() []byte {
	key, _ := hex.DecodeString(c.SessionSigningKey)
	return key
}
