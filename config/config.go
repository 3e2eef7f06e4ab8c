// Package config provides configuration management for dashport.
// It handles loading and validating configuration from YAML files and environment variables.
package config

import "time"

// AppConfig represents the complete application configuration
type AppConfig struct {
	Server    ServerConfig    `koanf:"server"`
	Auth      AuthConfig      `koanf:"auth"`
	UserStore UserStoreConfig `koanf:"user_store"`
	Dashboard DashboardConfig `koanf:"dashboard"`
	Audit     AuditConfig     `koanf:"audit"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Log       LogConfig       `koanf:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ListenAddr   string        `koanf:"listen_addr"`
	ExternalURL  string        `koanf:"external_url"`
	CertFile     string        `koanf:"cert_file"`
	KeyFile      string        `koanf:"key_file"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// AuthConfig holds session and password policy configuration
type AuthConfig struct {
	SessionSecret     string        `koanf:"session_secret"`
	SessionCookieName string        `koanf:"session_cookie_name"`
	SessionTTL        time.Duration `koanf:"session_ttl"`
	MinPasswordLength int           `koanf:"min_password_length"`
}

// UserStoreConfig selects and configures the user/role document backend
type UserStoreConfig struct {
	Type       string `koanf:"type"` // "yaml" or "sqlite"
	Path       string `koanf:"path"`
	SQLitePath string `koanf:"sqlite_path"`
}

// DashboardConfig locates the dashboard document
type DashboardConfig struct {
	Path string `koanf:"path"`
}

// AuditConfig locates the audit log
type AuditConfig struct {
	Path string `koanf:"path"`
}

// QuotaConfig is one rate-limit class: Events per Interval with a burst
type QuotaConfig struct {
	Events   int           `koanf:"events"`
	Interval time.Duration `koanf:"interval"`
	Burst    int           `koanf:"burst"`
}

// RateLimitConfig holds the per-endpoint-class quotas
type RateLimitConfig struct {
	Login    QuotaConfig `koanf:"login"`
	Password QuotaConfig `koanf:"password"`
	Mutation QuotaConfig `koanf:"mutation"`
	Default  QuotaConfig `koanf:"default"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
