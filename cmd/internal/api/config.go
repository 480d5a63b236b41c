package rosterapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls API behavior and request limits.
type Config struct {
	MaxBodyBytes int64

	// AvatarTimeout bounds the upstream thumbnail fetch so the avatar
	// endpoint can degrade instead of hanging.
	AvatarTimeout time.Duration

	// ListLimit caps admin list endpoints.
	ListLimit int
}

// LoadConfigFromEnv loads API config from environment variables with
// safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		MaxBodyBytes:  envInt64("USAFFE_API_MAX_BODY_BYTES", 1<<20), // 1 MiB
		AvatarTimeout: envDuration("USAFFE_API_AVATAR_TIMEOUT", 4*time.Second),
		ListLimit:     envInt("USAFFE_API_LIST_LIMIT", 200),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.ListLimit <= 0 || cfg.ListLimit > 1000 {
		cfg.ListLimit = 200
	}

	return cfg
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
