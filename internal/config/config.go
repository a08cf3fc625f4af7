package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort string `toml:"port"`
	LogLevel   string `toml:"log_level"`
	EnableH2C  bool   `toml:"enable_h2c"`
	CORSOrigin string `toml:"cors_origin"`

	// Database: "mongodb" (default), "sqlite", "postgres" or "mysql"
	DatabaseType string `toml:"db_type"`
	MongoURI     string `toml:"mongo_uri"`
	DatabaseURL  string `toml:"database_url"`
	DatabasePath string `toml:"db_path"`

	JWTSecret string        `toml:"jwt_secret"`
	TokenTTL  time.Duration `toml:"-"`

	GoogleClientID       string `toml:"google_client_id"`
	GoogleClientSecret   string `toml:"google_client_secret"`
	OAuthRedirectBaseURL string `toml:"oauth_redirect_base_url"`
	FrontendURL          string `toml:"frontend_url"`

	AWSRegion    string `toml:"aws_region"`
	SESFromEmail string `toml:"ses_from_email"`
	SESFromName  string `toml:"ses_from_name"`

	SMTPHost     string `toml:"smtp_host"`
	SMTPPort     int    `toml:"smtp_port"`
	SMTPUsername string `toml:"smtp_username"`
	SMTPPassword string `toml:"smtp_password"`
	SMTPSender   string `toml:"smtp_sender"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		ServerPort:   "5000",
		LogLevel:     "info",
		CORSOrigin:   "*",
		DatabaseType: "mongodb",
		MongoURI:     "mongodb://localhost:27017/todos_db",
		DatabasePath: "./familytodo.db",
		TokenTTL:     7 * 24 * time.Hour,
		FrontendURL:  "http://localhost:3000",
		AWSRegion:    "us-east-1",
		SESFromName:  "Family Todo",
		SMTPPort:     587,
	}
}

// Load reads configuration from an optional .env file, an optional TOML file
// named by CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.ServerPort = getEnv("PORT", cfg.ServerPort)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.CORSOrigin = getEnv("CORS_ORIGIN", cfg.CORSOrigin)
	cfg.DatabaseType = strings.ToLower(getEnv("DB_TYPE", cfg.DatabaseType))
	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.DatabasePath = getEnv("DB_PATH", cfg.DatabasePath)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", cfg.GoogleClientID)
	cfg.GoogleClientSecret = getEnv("GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret)
	cfg.OAuthRedirectBaseURL = getEnv("OAUTH_REDIRECT_BASE_URL", cfg.OAuthRedirectBaseURL)
	cfg.FrontendURL = strings.TrimRight(getEnv("FRONTEND_URL", cfg.FrontendURL), "/")
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.SESFromEmail = getEnv("SES_FROM_EMAIL", cfg.SESFromEmail)
	cfg.SESFromName = getEnv("SES_FROM_NAME", cfg.SESFromName)
	cfg.SMTPHost = getEnv("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPUsername = getEnv("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.SMTPSender = getEnv("SMTP_SENDER", cfg.SMTPSender)

	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SMTP_PORT %q: %w", v, err)
		}
		cfg.SMTPPort = port
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TOKEN_TTL %q: %w", v, err)
		}
		cfg.TokenTTL = ttl
	}
	if v := os.Getenv("ENABLE_H2C"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ENABLE_H2C %q: %w", v, err)
		}
		cfg.EnableH2C = enabled
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is configured
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
