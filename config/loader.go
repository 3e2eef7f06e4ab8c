package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// LoadConfig loads configuration from multiple sources with strict priority:
// 1. Environment variables (highest priority)
// 2. Config file (dashport.yaml)
// 3. Defaults (lowest priority)
func LoadConfig() (AppConfig, error) {
	return LoadConfigFromFile("")
}

// LoadConfigFromFile loads configuration from multiple sources with a specific config file:
// 1. Environment variables (highest priority)
// 2. Specified config file or default config files
// 3. Defaults (lowest priority)
func LoadConfigFromFile(configFilePath string) (AppConfig, error) {
	k := koanf.New(".")

	// Load default configuration first
	defaultCfg := DefaultAppConfig()
	if err := k.Load(structs.Provider(defaultCfg, "koanf"), nil); err != nil {
		return AppConfig{}, fmt.Errorf("failed to load default config: %w", err)
	}

	// Load from config file
	if configFilePath != "" {
		// Use specified config file
		if _, err := os.Stat(configFilePath); err != nil {
			return AppConfig{}, fmt.Errorf("specified config file %s not found: %w", configFilePath, err)
		}

		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return AppConfig{}, fmt.Errorf("failed to load config file %s: %w", configFilePath, err)
		}
	} else {
		// Load from default config files if they exist
		configFiles := []string{"dashport.yaml", "dashport.yml"}
		for _, configFile := range configFiles {
			if _, err := os.Stat(configFile); err == nil {
				if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
					return AppConfig{}, fmt.Errorf("failed to load config file %s: %w", configFile, err)
				}
				break
			}
		}
	}

	// Load environment variables with DASHPORT_ prefix
	if err := k.Load(env.Provider("DASHPORT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "DASHPORT_")), "_", ".", -1)
	}), nil); err != nil {
		return AppConfig{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Unmarshal into config struct
	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if err := validateConfig(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates that required configuration fields are set
func validateConfig(cfg *AppConfig) error {
	if cfg.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}

	if cfg.Auth.SessionSecret == "" || cfg.Auth.SessionSecret == "change-me-session-secret" {
		return fmt.Errorf("auth.session_secret must be set and not use default value")
	}

	if cfg.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}

	if cfg.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("auth.min_password_length must be at least 1")
	}

	switch cfg.UserStore.Type {
	case "yaml":
		if cfg.UserStore.Path == "" {
			return fmt.Errorf("user_store.path is required for the yaml backend")
		}
	case "sqlite":
		if cfg.UserStore.SQLitePath == "" {
			return fmt.Errorf("user_store.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("user_store.type must be \"yaml\" or \"sqlite\", got %q", cfg.UserStore.Type)
	}

	if cfg.Dashboard.Path == "" {
		return fmt.Errorf("dashboard.path is required")
	}

	if cfg.Audit.Path == "" {
		return fmt.Errorf("audit.path is required")
	}

	for name, q := range map[string]QuotaConfig{
		"login":    cfg.RateLimit.Login,
		"password": cfg.RateLimit.Password,
		"mutation": cfg.RateLimit.Mutation,
		"default":  cfg.RateLimit.Default,
	} {
		if q.Events < 1 || q.Interval <= 0 || q.Burst < 1 {
			return fmt.Errorf("rate_limit.%s must have positive events, interval and burst", name)
		}
	}

	return nil
}
