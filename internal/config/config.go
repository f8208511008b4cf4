package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port               string `yaml:"port"`
	DatabaseURL        string `yaml:"databaseURL"`
	LogLevel           string `yaml:"logLevel"`
	RedisAddr          string `yaml:"redisAddr"`
	RedisPassword      string `yaml:"redisPassword"`
	IdentityServiceURL string `yaml:"identityServiceURL"`
	IdentityAPIKey     string `yaml:"identityAPIKey"`
	IdentityJWKSURL    string `yaml:"identityJWKSURL"`
	JWTIssuer          string `yaml:"jwtIssuer"`
	JWTAudience        string `yaml:"jwtAudience"`
	ProfileCacheTTL    string `yaml:"profileCacheTTL"`
}

// Load reads config from path (defaults to config.yaml) and applies
// environment overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("IDENTITY_SERVICE_URL"); v != "" {
		cfg.IdentityServiceURL = v
	}
	if v := os.Getenv("IDENTITY_API_KEY"); v != "" {
		cfg.IdentityAPIKey = v
	}
	if v := os.Getenv("IDENTITY_JWKS_URL"); v != "" {
		cfg.IdentityJWKSURL = v
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.ProfileCacheTTL != "" {
		if _, err := time.ParseDuration(cfg.ProfileCacheTTL); err != nil {
			return fmt.Errorf("config: invalid profileCacheTTL: %w", err)
		}
	}
	return nil
}

// ParseProfileCacheTTL returns the configured TTL, or zero when unset
// so the cache falls back to its default.
func ParseProfileCacheTTL(cfg FileConfig) time.Duration {
	if cfg.ProfileCacheTTL == "" {
		return 0
	}
	ttl, err := time.ParseDuration(cfg.ProfileCacheTTL)
	if err != nil {
		return 0
	}
	return ttl
}
