// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Sheet    SheetConfig
	Export   ExportConfig
	Session  SessionConfig
	Database DatabaseConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Theme    ThemeConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 90s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"90s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// SheetConfig describes the published spreadsheet export.
type SheetConfig struct {
	// URL is the export location (required)
	URL string `env:"SHEET_URL" envAlt:"CERT_SHEET_URL" required:"true"`

	// Format is csv or xlsx (default: csv)
	Format string `env:"SHEET_FORMAT" default:"csv"`

	// Timeout bounds a single fetch (default: 20s)
	Timeout time.Duration `env:"SHEET_TIMEOUT" default:"20s"`

	// MaxBytes caps the accepted export size (default: 10MB)
	MaxBytes int64 `env:"SHEET_MAX_BYTES" default:"10485760"`
}

// ExportConfig holds browser rendering settings.
type ExportConfig struct {
	// Scale is the device scale factor used for PNG export (default: 2)
	Scale float64 `env:"EXPORT_SCALE" default:"2"`

	// BrowserBin is a Chromium binary to use instead of the downloaded one
	BrowserBin string `env:"EXPORT_BROWSER_BIN"`

	// Headless runs the browser without a window (default: true)
	Headless bool `env:"EXPORT_HEADLESS" default:"true"`

	// MaxConcurrent is the number of renders allowed at once (default: 2)
	MaxConcurrent int `env:"EXPORT_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long to wait for a render slot (default: 15s)
	MaxWaitTime time.Duration `env:"EXPORT_MAX_WAIT_TIME" default:"15s"`

	// Timeout bounds a single render (default: 30s)
	Timeout time.Duration `env:"EXPORT_TIMEOUT" default:"30s"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	// TTL is how long a rendered certificate is kept (default: 30m)
	TTL time.Duration `env:"SESSION_TTL" default:"30m"`

	// CookieName names the session cookie (default: certgen_session)
	CookieName string `env:"SESSION_COOKIE_NAME" default:"certgen_session"`

	// SecureCookie sets the Secure attribute on the cookie (default: false)
	SecureCookie bool `env:"SESSION_SECURE_COOKIE" default:"false"`
}

// DatabaseConfig holds settings for the optional audit store.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty disables auditing.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 5)
	MaxConns int `env:"DB_MAX_CONNS" default:"5"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether an audit database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 60)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"60"`

	// ExportLimit is requests per minute for export endpoints (default: 10)
	ExportLimit int `env:"RATE_LIMIT_EXPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ThemeConfig points at an optional YAML theme file.
type ThemeConfig struct {
	File string `env:"CERT_THEME_FILE"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
