package app

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Issuer         string        // token issuer (default: progressiq)
	DatabaseFile   string        // SQLite database file (default: ./progressiq.db)
	PepperFile     string        // password pepper, created on first start (default: ./pepper)
	SigningKeyFile string        // Ed25519 PEM; empty means an ephemeral key (default: ./signing.pem)
	TokenTTL       time.Duration // access token lifetime (default: 24h)

	UploadDir      string // work file directory (default: ./uploads)
	UploadMaxBytes int64  // largest accepted work file (default: 10 MiB)

	AppBaseURL     string        // dashboard origin used in invite links (default: http://localhost:5173)
	InviteTTL      time.Duration // invite lifetime (default: 7 days)
	AdminSignupKey string        // required to self-register as Admin; empty disables it

	AdminEmail    string // bootstrap Admin, created on start when set
	AdminUsername string
	AdminPassword string

	Env                  string        // dev, staging, prod (default: dev)
	LogLevel             string        // debug, info, warn, error (default: info)
	LogFormat            string        // json, text (default: json)
	Port                 int           // HTTP port (default: 8080)
	ShutdownGracePeriod  time.Duration // graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // expired invite sweep (default: 1h)
}

// LoadConfig reads the environment, after loading a .env file from the
// working directory if there is one. Variables already set win over .env.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Issuer:         getEnvOrDefault("PIQ_ISSUER", "progressiq"),
		DatabaseFile:   getEnvOrDefault("PIQ_DATABASE_FILE", "progressiq.db"),
		PepperFile:     getEnvOrDefault("PIQ_PEPPER_FILE", "pepper"),
		SigningKeyFile: getEnvOrDefault("PIQ_SIGNING_KEY_FILE", "signing.pem"),
		TokenTTL:       getEnvDurationOrDefault("PIQ_TOKEN_TTL", 24*time.Hour),

		UploadDir:      getEnvOrDefault("PIQ_UPLOAD_DIR", "uploads"),
		UploadMaxBytes: int64(getEnvIntOrDefault("PIQ_UPLOAD_MAX_BYTES", 10<<20)),

		AppBaseURL:     getEnvOrDefault("PIQ_APP_BASE_URL", "http://localhost:5173"),
		InviteTTL:      getEnvDurationOrDefault("PIQ_INVITE_TTL", 7*24*time.Hour),
		AdminSignupKey: os.Getenv("PIQ_ADMIN_SIGNUP_KEY"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
