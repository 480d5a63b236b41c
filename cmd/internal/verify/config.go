package verify

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// ErrConfig indicates invalid verification configuration.
var ErrConfig = errors.New("verify: invalid configuration")

// Config defines runtime configuration for the verification subsystem.
//
// It controls the challenge window, member session lifetime, and the
// entropy of session tokens. Values are environment-driven so
// deployments can tune them without code changes.
type Config struct {
	// CodeWindow is how long an issued challenge code stays valid.
	// Checks after the window fail and the member must request a new
	// code.
	CodeWindow time.Duration

	// SessionTTL is the lifetime of a member session token minted on
	// successful verification.
	SessionTTL time.Duration

	// SessionTokenBytes is the number of random bytes in an opaque
	// member session token.
	SessionTokenBytes int
}

// DefaultConfig returns defaults suitable for development.
func DefaultConfig() Config {
	return Config{
		CodeWindow:        10 * time.Minute,
		SessionTTL:        30 * 24 * time.Hour,
		SessionTokenBytes: 32,
	}
}

// LoadConfigFromEnv loads verification configuration from environment
// variables.
//
// Optional (durations must be valid Go duration strings):
//   - USAFFE_VERIFY_CODE_WINDOW
//   - USAFFE_VERIFY_SESSION_TTL
//   - USAFFE_VERIFY_SESSION_TOKEN_BYTES
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("USAFFE_VERIFY_CODE_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.CodeWindow = d
	}

	if v := os.Getenv("USAFFE_VERIFY_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.SessionTTL = d
	}

	if v := os.Getenv("USAFFE_VERIFY_SESSION_TOKEN_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 32 || n > 64 {
			return Config{}, ErrConfig
		}
		cfg.SessionTokenBytes = n
	}

	return cfg, nil
}
