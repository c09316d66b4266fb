package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP server
	Server ServerConfig

	// Database Configuration
	Database DatabaseConfig

	// Authentication Configuration
	Auth AuthConfig

	// Google OAuth2 Configuration
	Google GoogleConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AuthConfig holds session and credential configuration
type AuthConfig struct {
	// Lifetime of server-side sessions
	SessionLifetime time.Duration

	// bcrypt cost used when hashing new passwords
	BcryptCost int

	// HMAC secret for API bearer tokens; generated at startup if empty
	JWTSecret string
}

// GoogleConfig holds Google OAuth2 client configuration
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	// Database URL - default to a local sqlite file, allow override for dev
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "hushd.sqlite"
	}

	// Session lifetime - default 24 hours
	sessionLifetime := 24 * time.Hour
	if v := os.Getenv("SESSION_LIFETIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			sessionLifetime = d
		}
	}

	// bcrypt cost - default 10 salt rounds
	bcryptCost := 10
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			bcryptCost = n
		}
	}

	// Logging configuration - defaults suitable for production
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}

	return &Config{
		Server: ServerConfig{
			Port: port,
		},
		Database: DatabaseConfig{
			URL: dbURL,
		},
		Auth: AuthConfig{
			SessionLifetime: sessionLifetime,
			BcryptCost:      bcryptCost,
			JWTSecret:       os.Getenv("JWT_SECRET"),
		},
		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			CallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),
		},
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
		},
	}, nil
}
