package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	Environment string

	FirebaseProject            string
	FirebaseServiceAccountJSON string
	FirebaseServiceAccountPath string
	StorageBucket              string

	StoreDriver    string // "firestore" or "memory"
	PresenceDriver string // "firestore" or "redis"
	RedisAddr      string
	RedisPassword  string
	SeedUsersPath  string // JSON users for the memory driver

	AllowedOrigins    []string
	HTTPRatePerMinute int

	PresenceInterval      time.Duration
	PresenceLookupTimeout time.Duration
	PresenceTTL           time.Duration
	SendTimeout           time.Duration
	PendingTimeout        time.Duration
	SendRatePerMinute     int
	SendBurst             int
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		FirebaseProject:            getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", "./firebase-service-account.json"),
		StorageBucket:              getEnv("STORAGE_BUCKET", ""),

		StoreDriver:    getEnv("STORE_DRIVER", "firestore"),
		PresenceDriver: getEnv("PRESENCE_DRIVER", "firestore"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		SeedUsersPath:  getEnv("SEED_USERS_PATH", ""),

		AllowedOrigins:    getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		HTTPRatePerMinute: int(getEnvAsInt64("HTTP_RATE_PER_MINUTE", 120)),

		PresenceInterval:      getEnvAsDuration("PRESENCE_INTERVAL", 30*time.Second),
		PresenceLookupTimeout: getEnvAsDuration("PRESENCE_LOOKUP_TIMEOUT", 5*time.Second),
		PresenceTTL:           getEnvAsDuration("PRESENCE_TTL", 90*time.Second),
		SendTimeout:           getEnvAsDuration("SEND_TIMEOUT", 15*time.Second),
		PendingTimeout:        getEnvAsDuration("PENDING_TIMEOUT", 30*time.Second),
		SendRatePerMinute:     int(getEnvAsInt64("SEND_RATE_PER_MINUTE", 30)),
		SendBurst:             int(getEnvAsInt64("SEND_BURST", 10)),
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("30s") or a plain number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvAsSlice splits a comma separated value, dropping empty entries.
func getEnvAsSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
