package adminauth

import (
	"os"
	"strconv"
	"time"
)

// Config defines runtime configuration for admin keys and sessions.
type Config struct {
	// KeyTTL is how long a minted admin key stays exchangeable.
	KeyTTL time.Duration

	// SessionTTL is the lifetime of an admin session.
	SessionTTL time.Duration

	// KeyBytes and SessionTokenBytes define the entropy of keys and
	// session tokens respectively.
	KeyBytes          int
	SessionTokenBytes int

	// OpenKeyMint allows unauthenticated key minting. This exists for
	// bootstrap and small private deployments and must stay off
	// everywhere else; when false, minting requires an admin session.
	OpenKeyMint bool
}

// DefaultConfig returns defaults suitable for development.
func DefaultConfig() Config {
	return Config{
		KeyTTL:            12 * time.Hour,
		SessionTTL:        8 * time.Hour,
		KeyBytes:          32,
		SessionTokenBytes: 32,
		OpenKeyMint:       false,
	}
}

// LoadConfigFromEnv loads admin auth configuration from environment
// variables.
//
// Optional:
//   - USAFFE_ADMIN_KEY_TTL
//   - USAFFE_ADMIN_SESSION_TTL
//   - USAFFE_ADMIN_KEY_BYTES
//   - USAFFE_ADMIN_SESSION_TOKEN_BYTES
//   - USAFFE_ADMIN_OPEN_KEY_MINT ("true" enables open minting)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("USAFFE_ADMIN_KEY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.KeyTTL = d
	}

	if v := os.Getenv("USAFFE_ADMIN_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.SessionTTL = d
	}

	if v := os.Getenv("USAFFE_ADMIN_KEY_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 32 || n > 64 {
			return Config{}, ErrConfig
		}
		cfg.KeyBytes = n
	}

	if v := os.Getenv("USAFFE_ADMIN_SESSION_TOKEN_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 32 || n > 64 {
			return Config{}, ErrConfig
		}
		cfg.SessionTokenBytes = n
	}

	if v := os.Getenv("USAFFE_ADMIN_OPEN_KEY_MINT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.OpenKeyMint = b
	}

	return cfg, nil
}
