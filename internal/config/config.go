// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for server, limit and debug settings.
//
// Gameplay tuning (world size, speeds, radii, clock) lives in internal/game
// because it is part of the rules, not of the deployment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int
	CORSOrigins []string // nil means the router defaults
	StaticDir   string   // directory holding the browser client
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:      3000,
		StaticDir: "./public",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	if dir := os.Getenv("STATIC_DIR"); dir != "" {
		cfg.StaticDir = dir
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// LimitsConfig controls DoS protection limits.
type LimitsConfig struct {
	MaxRooms          int // Hard cap on concurrently open rooms
	MaxPlayersPerRoom int // Hard cap on players admitted to one room
	MaxWSConnections  int // Hard cap on open websocket connections
	MaxWSPerIP        int // Open websocket connections per client IP
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() LimitsConfig {
	return LimitsConfig{
		MaxRooms:          500,
		MaxPlayersPerRoom: 32,
		MaxWSConnections:  500,
		MaxWSPerIP:        10,
	}
}

// LimitsFromEnv returns resource limits with environment variable overrides.
func LimitsFromEnv() LimitsConfig {
	cfg := DefaultLimits()

	if v := getEnvInt("MAX_ROOMS", 0); v > 0 {
		cfg.MaxRooms = v
	}
	if v := getEnvInt("MAX_ROOM_PLAYERS", 0); v > 0 {
		cfg.MaxPlayersPerRoom = v
	}
	if v := getEnvInt("MAX_WS_CONNECTIONS", 0); v > 0 {
		cfg.MaxWSConnections = v
	}
	if v := getEnvInt("MAX_WS_PER_IP", 0); v > 0 {
		cfg.MaxWSPerIP = v
	}

	return cfg
}

// =============================================================================
// RATE LIMITING
// =============================================================================

// RateLimitConfig configures the per-IP HTTP rate limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration
}

// DefaultRateLimit returns production-safe defaults.
func DefaultRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		CleanupInterval:   5 * time.Minute,
	}
}

// RateLimitFromEnv returns rate limiting with environment variable overrides.
func RateLimitFromEnv() RateLimitConfig {
	cfg := DefaultRateLimit()

	if v := getEnvFloat("RATE_LIMIT_RPS", 0); v > 0 {
		cfg.RequestsPerSecond = v
	}
	if v := getEnvInt("RATE_LIMIT_BURST", 0); v > 0 {
		cfg.Burst = v
	}

	return cfg
}

// =============================================================================
// DEBUG SERVER
// =============================================================================

// DebugConfig configures the pprof/metrics server.
type DebugConfig struct {
	Enabled       bool
	ListenAddr    string // MUST stay on localhost in production
	BasicAuthUser string // optional; empty disables auth
	BasicAuthPass string
}

// DefaultDebug returns safe defaults.
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// DebugFromEnv returns debug configuration with environment variable overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()

	if getEnvBool("DISABLE_DEBUG_SERVER", false) {
		cfg.Enabled = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_PASS")

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server       ServerConfig
	Limits       LimitsConfig
	RateLimit    RateLimitConfig
	Debug        DebugConfig
	EventLogPath string // empty disables the audit log
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server:       ServerFromEnv(),
		Limits:       LimitsFromEnv(),
		RateLimit:    RateLimitFromEnv(),
		Debug:        DebugFromEnv(),
		EventLogPath: os.Getenv("EVENT_LOG_PATH"),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
