package config

import "time"

// DefaultAppConfig returns an AppConfig struct with sensible default values
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			ListenAddr:   ":5555",
			ExternalURL:  "localhost:5555",
			CertFile:     "",
			KeyFile:      "",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			SessionSecret:     "change-me-session-secret",
			SessionCookieName: "dashport_session",
			SessionTTL:        365 * 24 * time.Hour,
			MinPasswordLength: 8,
		},
		UserStore: UserStoreConfig{
			Type:       "yaml",
			Path:       "users.yaml",
			SQLitePath: "./dashport.sqlite3",
		},
		Dashboard: DashboardConfig{
			Path: "config.yaml",
		},
		Audit: AuditConfig{
			Path: "audit.log",
		},
		RateLimit: RateLimitConfig{
			Login:    QuotaConfig{Events: 5, Interval: time.Minute, Burst: 5},
			Password: QuotaConfig{Events: 5, Interval: time.Hour, Burst: 5},
			Mutation: QuotaConfig{Events: 30, Interval: time.Hour, Burst: 10},
			Default:  QuotaConfig{Events: 120, Interval: time.Minute, Burst: 30},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
