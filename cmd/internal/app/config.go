package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBSchema    string
	DBMaxConns  int32
	DBMinConns  int32

	// If true, /readyz returns 503 unless the database is reachable.
	ReadinessRequireDB bool

	// Security policy:
	// If true, USAFFE_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and
	// credential hashing must be HMAC-based.
	RequireTokenHMAC bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("USAFFE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("USAFFE_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("USAFFE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("USAFFE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("USAFFE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("USAFFE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("USAFFE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("USAFFE_DATABASE_URL", ""),
		DBSchema:    EnvString("USAFFE_DB_SCHEMA", "usaffe"),
		DBMaxConns:  EnvInt32("USAFFE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("USAFFE_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("USAFFE_READINESS_REQUIRE_DB", true),

		RequireTokenHMAC: EnvBool("USAFFE_REQUIRE_TOKEN_HMAC", false),
	}
}
