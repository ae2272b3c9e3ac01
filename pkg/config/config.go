// Package config centralizes tunables and environment loading.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Server defaults
const (
	DefaultPort     = "8080"
	DefaultDataDir  = "./data/seaportal"
	DefaultCacheDir = "./data/cache"
)

// Figure defaults
const (
	// DefaultMaxPlotPoints caps how many aggregate records a figure may
	// draw; rule selection walks to coarser resolutions until under it.
	DefaultMaxPlotPoints = 5000

	// FigureBuildTimeout bounds one background figure build.
	FigureBuildTimeout = 2 * time.Minute

	// FigurePollInterval is how often clients are expected to re-poll a
	// figure still being built.
	FigurePollInterval = 2 * time.Second
)

// HTTP timeouts
const (
	ServerReadTimeout  = 30 * time.Second
	ServerWriteTimeout = 60 * time.Second
	ShutdownTimeout    = 30 * time.Second

	// RegistryTimeout bounds outbound calls to the DOI registry.
	RegistryTimeout = 15 * time.Second
)

// WebSocket configuration
const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSBroadcastBuffer = 256
	WSChannelBuffer   = 10
	WSWriteDeadline   = 10 * time.Second
	WSReadDeadline    = 60 * time.Second
	WSPingInterval    = 30 * time.Second
)

// Config holds the runtime configuration for the portal.
type Config struct {
	Port          string
	DataDir       string
	CacheDir      string
	InMemory      bool
	MaxPlotPoints int
	RegistryURL   string
	RegistryUser  string
	RegistryPass  string
	DOIPrefix     string
	PortalBaseURL string
}

// Load reads configuration from a .env file (when present) and the
// process environment. Missing keys fall back to defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Ignoring unreadable .env file: %v", err)
	}

	return Config{
		Port:          getEnv("SEAPORTAL_PORT", DefaultPort),
		DataDir:       getEnv("SEAPORTAL_DATA_DIR", DefaultDataDir),
		CacheDir:      getEnv("SEAPORTAL_CACHE_DIR", DefaultCacheDir),
		InMemory:      getEnvBool("SEAPORTAL_IN_MEMORY", false),
		MaxPlotPoints: getEnvInt("SEAPORTAL_MAX_PLOT_POINTS", DefaultMaxPlotPoints),
		RegistryURL:   getEnv("SEAPORTAL_DOI_REGISTRY_URL", ""),
		RegistryUser:  getEnv("SEAPORTAL_DOI_REGISTRY_USER", ""),
		RegistryPass:  getEnv("SEAPORTAL_DOI_REGISTRY_PASS", ""),
		DOIPrefix:     getEnv("SEAPORTAL_DOI_PREFIX", "10.5072"),
		PortalBaseURL: getEnv("SEAPORTAL_BASE_URL", "http://localhost:"+getEnv("SEAPORTAL_PORT", DefaultPort)),
	}
}

func getEnv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
		log.Printf("Invalid value for %s: %q, using default %d", key, val, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
		log.Printf("Invalid value for %s: %q, using default %t", key, val, defaultValue)
	}
	return defaultValue
}
