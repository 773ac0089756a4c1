package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the runtime configuration for the companion service.
// Values are read from the environment with sensible local-dev defaults.
type Config struct {
	Port            string
	UpstreamBaseURL string
	DBPath          string

	// OfflineMode forces the network mode to offline and selects the
	// durable element store for the content-tracking bridge.
	OfflineMode bool

	// AdminPassphraseHash is a bcrypt hash guarding the elevation endpoint.
	// Empty means elevation is accepted without a local passphrase check.
	AdminPassphraseHash string

	// Cache policy knobs. Defaults match the front-end's fetching policy.
	FreshFor        time.Duration
	EvictAfter      time.Duration
	SnapshotMaxAge  time.Duration
	SnapshotEvery   time.Duration
	HealthPingEvery time.Duration
}

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		Port:                getEnv("COMPANION_PORT", ":8008"),
		UpstreamBaseURL:     getEnv("UPSTREAM_BASE_URL", "http://localhost:9000"),
		DBPath:              getEnv("COMPANION_DB", "lms-companion.db"),
		OfflineMode:         getEnvBool("OFFLINE_MODE", false),
		AdminPassphraseHash: getEnv("ADMIN_PASSPHRASE_HASH", ""),
		FreshFor:            getEnvDuration("CACHE_FRESH_FOR", 5*time.Minute),
		EvictAfter:          getEnvDuration("CACHE_EVICT_AFTER", 10*time.Minute),
		SnapshotMaxAge:      getEnvDuration("SNAPSHOT_MAX_AGE", 24*time.Hour),
		SnapshotEvery:       getEnvDuration("SNAPSHOT_EVERY", 5*time.Minute),
		HealthPingEvery:     getEnvDuration("HEALTH_PING_EVERY", 15*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
