// Package config provides centralized configuration management for the dashboard.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"strings"
	"time"
)

// Built-in backend base URLs selected by BACKEND_ENV.
const (
	LocalBackendURL      = "http://localhost:5000/api"
	ProductionBackendURL = "https://api.swiftdrop.io/api"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Export   ExportConfig
	Cache    CacheConfig
	Map      MapConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Archive  ArchiveConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// PublicURL is the dashboard's external address. Hosted verification and
	// payout pages send drivers back to PublicURL + /orientation.
	PublicURL string `env:"SERVER_PUBLIC_URL" default:"http://localhost:8080"`
}

// BackendConfig holds settings for the delivery backend REST API.
type BackendConfig struct {
	// Env selects a built-in base URL: local or production (default: production)
	Env string `env:"BACKEND_ENV" default:"production"`

	// BaseURL overrides the URL picked by Env when set
	BaseURL string `env:"BACKEND_BASE_URL"`

	// ServiceToken is sent when the caller did not present a bearer token
	ServiceToken string `env:"BACKEND_SERVICE_TOKEN"`

	// Timeout bounds a single backend request (default: 20s)
	Timeout time.Duration `env:"BACKEND_TIMEOUT" default:"20s"`

	// RetryBaseDelay is the first backoff interval of the profile retry policy (default: 1s)
	RetryBaseDelay time.Duration `env:"BACKEND_RETRY_BASE_DELAY" default:"1s"`
}

// DatabaseConfig holds the audit database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Auditing is disabled when empty.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	// JWTSecret verifies HS256 tokens issued by the backend. Tokens are
	// forwarded unverified when empty.
	JWTSecret string `env:"AUTH_JWT_SECRET"`

	// Required rejects requests without a bearer token (default: true)
	Required bool `env:"AUTH_REQUIRED" default:"true"`

	// LoginURL is where authentication failures are redirected (default: /login)
	LoginURL string `env:"AUTH_LOGIN_URL" default:"/login"`
}

// ExportConfig holds CSV export settings.
type ExportConfig struct {
	// AllLimit is the page size used for "download all" (default: 10000)
	AllLimit int `env:"EXPORT_ALL_LIMIT" default:"10000"`

	// MaxConcurrent is the maximum number of parallel "download all" exports (default: 3)
	MaxConcurrent int `env:"EXPORT_MAX_CONCURRENT" default:"3"`

	// MaxWaitTime is how long to wait for an export slot (default: 30s)
	MaxWaitTime time.Duration `env:"EXPORT_MAX_WAIT_TIME" default:"30s"`
}

// CacheConfig holds query cache settings.
type CacheConfig struct {
	// TTL is how long a fetched page stays fresh (default: 30s)
	TTL time.Duration `env:"CACHE_TTL" default:"30s"`

	// SweepInterval is how often expired entries are evicted (default: 1m)
	SweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" default:"1m"`
}

// MapConfig holds the tile provider settings handed to the client map.
type MapConfig struct {
	// TileURL is the tile template, with {z}/{x}/{y} and {key} placeholders
	TileURL string `env:"MAP_TILE_URL" default:"https://api.maptiler.com/maps/streets/{z}/{x}/{y}.png?key={key}"`

	// APIKey is substituted for {key} in TileURL
	APIKey string `env:"MAP_API_KEY"`

	// ImageSize is the edge length of exported coverage PNGs in pixels (default: 512)
	ImageSize int `env:"MAP_IMAGE_SIZE" default:"512"`

	// CenterLat and CenterLon position the client map before a search (default: Austin, TX)
	CenterLat float64 `env:"MAP_CENTER_LAT" default:"30.2672"`
	CenterLon float64 `env:"MAP_CENTER_LON" default:"-97.7431"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// AllowedOrigins is a comma-separated list of CORS origins (default: none)
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`

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

// ArchiveConfig holds audit log retention settings.
type ArchiveConfig struct {
	// RetentionDays is days to keep audit entries (default: 365)
	RetentionDays int `env:"AUDIT_RETENTION_DAYS" default:"365"`

	// BatchSize is rows to delete per purge batch (default: 5000)
	BatchSize int `env:"AUDIT_PURGE_BATCH_SIZE" default:"5000"`

	// CheckInterval is how often to run the purge job (default: 24h)
	CheckInterval time.Duration `env:"AUDIT_CHECK_INTERVAL" default:"24h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// OrientationReturnURL is where hosted orientation pages return to.
func (c *ServerConfig) OrientationReturnURL() string {
	return strings.TrimRight(c.PublicURL, "/") + "/orientation"
}

// URL returns the effective backend base URL.
func (c *BackendConfig) URL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Env == "local" {
		return LocalBackendURL
	}
	return ProductionBackendURL
}

// AuditEnabled reports whether a database is configured for the audit trail.
func (c *DatabaseConfig) AuditEnabled() bool {
	return c.URL != ""
}
