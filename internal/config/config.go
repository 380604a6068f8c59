package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Directory     DirectoryConfig
	Session       SessionConfig
	Observability ObservabilityConfig
	Security      SecurityConfig
	RateLimit     RateLimitConfig
	Integrations  IntegrationsConfig
	Retention     RetentionConfig
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	StaticDir      string
}

// DirectoryConfig holds the control-plane database configuration.
// The directory database stores tenants, data sources, users and sessions;
// tenant business data lives in the data sources it points at.
type DirectoryConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SessionConfig holds session management configuration
type SessionConfig struct {
	CookieName     string
	CookieDomain   string
	CookiePath     string
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite string
	Lifetime       time.Duration
	IdleTimeout    time.Duration
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	Argon2Memory       uint32
	Argon2Iterations   uint32
	Argon2Parallelism  uint8
	Argon2SaltLength   uint32
	Argon2KeyLength    uint32
	LockoutMaxAttempts int
	LockoutDuration    time.Duration
	APITokenSigningKey string
	APITokenIssuer     string
	DataSourceCacheTTL time.Duration
	PoolIdleTimeout    time.Duration
}

// IntegrationsConfig holds outbound provider configuration.
// Provider internals are external collaborators; these are the HTTP
// endpoints and credentials the thin clients dispatch to.
type IntegrationsConfig struct {
	PaymentBaseURL string
	PaymentAPIKey  string
	EmailBaseURL   string
	EmailAPIKey    string
	EmailFrom      string
	SMSBaseURL     string
	SMSAPIKey      string
	SMSFrom        string
	RequestTimeout time.Duration
	MaxRetryTime   time.Duration
}

// RetentionConfig holds data retention settings used by the cleanup job
type RetentionConfig struct {
	SoftDeleteMaxAge time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout:   parseDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:    parseDuration("SERVER_IDLE_TIMEOUT", "60s"),
			AllowedOrigins: parseList("SERVER_ALLOWED_ORIGINS", "http://localhost:3000"),
			StaticDir:      getEnv("SERVER_STATIC_DIR", ""),
		},
		Directory: DirectoryConfig{
			Host:            getEnv("DIRECTORY_DB_HOST", "localhost"),
			Port:            getEnv("DIRECTORY_DB_PORT", "5432"),
			User:            getEnv("DIRECTORY_DB_USER", "venuecore"),
			Password:        getEnv("DIRECTORY_DB_PASSWORD", ""),
			Database:        getEnv("DIRECTORY_DB_NAME", "venuecore"),
			SSLMode:         getEnv("DIRECTORY_DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DIRECTORY_DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DIRECTORY_DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DIRECTORY_DB_CONN_MAX_LIFETIME", "5m"),
		},
		Session: SessionConfig{
			CookieName:     getEnv("SESSION_COOKIE_NAME", "venuecore_session"),
			CookieDomain:   getEnv("SESSION_COOKIE_DOMAIN", ""),
			CookiePath:     getEnv("SESSION_COOKIE_PATH", "/"),
			CookieSecure:   parseBool("SESSION_COOKIE_SECURE", false),
			CookieHTTPOnly: parseBool("SESSION_COOKIE_HTTP_ONLY", true),
			CookieSameSite: getEnv("SESSION_COOKIE_SAME_SITE", "Lax"),
			Lifetime:       parseDuration("SESSION_LIFETIME", "24h"),
			IdleTimeout:    parseDuration("SESSION_IDLE_TIMEOUT", "30m"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "venuecore"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
		Security: SecurityConfig{
			Argon2Memory:       uint32(parseInt("ARGON2_MEMORY", 65536)),
			Argon2Iterations:   uint32(parseInt("ARGON2_ITERATIONS", 3)),
			Argon2Parallelism:  uint8(parseInt("ARGON2_PARALLELISM", 4)),
			Argon2SaltLength:   uint32(parseInt("ARGON2_SALT_LENGTH", 16)),
			Argon2KeyLength:    uint32(parseInt("ARGON2_KEY_LENGTH", 32)),
			LockoutMaxAttempts: parseInt("SECURITY_LOCKOUT_MAX_ATTEMPTS", 5),
			LockoutDuration:    parseDuration("SECURITY_LOCKOUT_DURATION", "15m"),
			APITokenSigningKey: getEnv("API_TOKEN_SIGNING_KEY", ""),
			APITokenIssuer:     getEnv("API_TOKEN_ISSUER", "venuecore"),
			DataSourceCacheTTL: parseDuration("DATA_SOURCE_CACHE_TTL", "5m"),
			PoolIdleTimeout:    parseDuration("DATA_SOURCE_POOL_IDLE_TIMEOUT", "30m"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: float64(parseInt("RATELIMIT_RPS", 10)),
			Burst:             parseInt("RATELIMIT_BURST", 20),
		},
		Integrations: IntegrationsConfig{
			PaymentBaseURL: getEnv("PAYMENT_BASE_URL", ""),
			PaymentAPIKey:  getEnv("PAYMENT_API_KEY", ""),
			EmailBaseURL:   getEnv("EMAIL_BASE_URL", ""),
			EmailAPIKey:    getEnv("EMAIL_API_KEY", ""),
			EmailFrom:      getEnv("EMAIL_FROM", "no-reply@venuecore.local"),
			SMSBaseURL:     getEnv("SMS_BASE_URL", ""),
			SMSAPIKey:      getEnv("SMS_API_KEY", ""),
			SMSFrom:        getEnv("SMS_FROM", ""),
			RequestTimeout: parseDuration("INTEGRATION_REQUEST_TIMEOUT", "10s"),
			MaxRetryTime:   parseDuration("INTEGRATION_MAX_RETRY_TIME", "30s"),
		},
		Retention: RetentionConfig{
			SoftDeleteMaxAge: parseDuration("RETENTION_SOFT_DELETE_MAX_AGE", "2160h"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Directory.Password == "" {
		return fmt.Errorf("DIRECTORY_DB_PASSWORD is required")
	}
	if c.Security.APITokenSigningKey == "" {
		return fmt.Errorf("API_TOKEN_SIGNING_KEY is required")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		// Fallback to default
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}

func parseList(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
