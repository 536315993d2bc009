package config

import (
	"os"
	"strconv"
)

type Config struct {
	// Server
	Port string

	// Database. Driver is "postgres" or "sqlite"; SQLitePath is only used
	// with the sqlite driver.
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Auth (single operator account)
	AdminUsername    string
	AdminPassword    string // plaintext in env for initial setup, bcrypt-hashed at startup
	AdminDisplayName string
	AdminRole        string
	JWTSecret        string

	// Activity feed
	FeedBuffer          int // per-subscriber channel depth
	RecentActivityLimit int // default page size for the activity endpoint
}

func Load() *Config {
	feedBuffer, _ := strconv.Atoi(getEnv("FEED_BUFFER", "64"))
	activityLimit, _ := strconv.Atoi(getEnv("RECENT_ACTIVITY_LIMIT", "50"))
	return &Config{
		Port:                getEnv("PORT", "8098"),
		DBDriver:            getEnv("DB_DRIVER", "postgres"),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnv("DB_PORT", "5432"),
		DBUser:              getEnv("DB_USER", "postgres"),
		DBPassword:          getEnv("DB_PASSWORD", ""),
		DBName:              getEnv("DB_NAME", "custodian_db"),
		DBSSLMode:           getEnv("DB_SSLMODE", "disable"),
		SQLitePath:          getEnv("SQLITE_PATH", "data/custodian.db"),
		AdminUsername:       getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:       getEnv("ADMIN_PASSWORD", ""),
		AdminDisplayName:    getEnv("ADMIN_DISPLAY_NAME", "Administrator"),
		AdminRole:           getEnv("ADMIN_ROLE", "admin"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		FeedBuffer:          feedBuffer,
		RecentActivityLimit: activityLimit,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
