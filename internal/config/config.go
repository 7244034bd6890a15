// Package config handles loading application configuration from environment variables.
// All settings have sensible defaults for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application settings loaded from environment variables.
type Config struct {
	Port               string
	DatabasePath       string
	JWTSecret          string
	AdminSecret        string
	TokenDuration      time.Duration
	ContentDir         string
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	TrustedProxies     []string
	SentryDSN          string
	SentryEnvironment  string

	// Realtime
	RequireAdminToSelect  bool
	AllowAnonymousViewers bool
	ContentResolveTimeout time.Duration
	WSWriteWait           time.Duration
	WSPongWait            time.Duration
	WSPingInterval        time.Duration
	WSMaxMessageSize      int64
	WSSendBuffer          int
	SSEHeartbeat          time.Duration
	ShutdownTimeout       time.Duration
}

// Load reads configuration from environment variables, using defaults where not set.
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "3000"),
		DatabasePath:       getEnv("DATABASE_PATH", "./jamoveo.db"),
		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"), // #nosec G101 -- intentional dev default
		AdminSecret:        getEnv("ADMIN_SECRET", ""),
		TokenDuration:      getDurationEnv("TOKEN_DURATION", 24*time.Hour),
		ContentDir:         getEnv("CONTENT_DIR", ""),
		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 10),
		CORSAllowedOrigins: getStringSliceEnvDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		TrustedProxies:     getStringSliceEnv("TRUSTED_PROXIES"),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		SentryEnvironment:  getEnv("SENTRY_ENVIRONMENT", "production"),

		RequireAdminToSelect:  getBoolEnv("REQUIRE_ADMIN_TO_SELECT", true),
		AllowAnonymousViewers: getBoolEnv("ALLOW_ANONYMOUS_VIEWERS", true),
		ContentResolveTimeout: getDurationEnv("CONTENT_RESOLVE_TIMEOUT", 3*time.Second),
		WSWriteWait:           getDurationEnv("WS_WRITE_WAIT", 10*time.Second),
		WSPongWait:            getDurationEnv("WS_PONG_WAIT", 60*time.Second),
		WSPingInterval:        getDurationEnv("WS_PING_INTERVAL", 54*time.Second),
		WSMaxMessageSize:      int64(getIntEnv("WS_MAX_MESSAGE_SIZE", 64*1024)),
		WSSendBuffer:          getIntEnv("WS_SEND_BUFFER", 16),
		SSEHeartbeat:          getDurationEnv("SSE_HEARTBEAT", 30*time.Second),
		ShutdownTimeout:       getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getStringSliceEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var result []string
	for _, s := range strings.Split(value, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

func getStringSliceEnvDefault(key string, defaultValue []string) []string {
	if v := getStringSliceEnv(key); v != nil {
		return v
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
