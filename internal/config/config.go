// Package config reads the engine's environment-driven configuration.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          string
	PublicBaseURL string

	StoreBackend  string // "redis" or "memory"
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MpesaEnv            string
	MpesaConsumerKey    string
	MpesaConsumerSecret string
	MpesaPasskey        string
	MpesaShortcode      string
	MpesaCallbackURL    string

	SendGridAPIKey string
	SendGridFrom   string

	AdminJWTSecret string

	TemplatesDir string
	UploadsDir   string
	GeneratedDir string

	RenderTimeout  time.Duration
	GatewayTimeout time.Duration
}

// Load builds the configuration from the environment with the same
// defaults the portal has always run with.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "3000"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:"+getEnv("PORT", "3000")),

		StoreBackend:  getEnv("STORE_BACKEND", "redis"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MpesaEnv:            getEnv("MPESA_ENV", "sandbox"),
		MpesaConsumerKey:    getEnv("MPESA_CONSUMER_KEY", ""),
		MpesaConsumerSecret: getEnv("MPESA_CONSUMER_SECRET", ""),
		MpesaPasskey:        getEnv("MPESA_PASSKEY", ""),
		MpesaShortcode:      getEnv("MPESA_SHORTCODE", ""),
		MpesaCallbackURL:    getEnv("MPESA_CALLBACK_URL", ""),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		SendGridFrom:   getEnv("SENDGRID_FROM", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		TemplatesDir: getEnv("TEMPLATES_DIR", "templates"),
		UploadsDir:   getEnv("UPLOADS_DIR", "uploads"),
		GeneratedDir: getEnv("GENERATED_DIR", "generated"),

		RenderTimeout:  getEnvDuration("RENDER_TIMEOUT", 30*time.Second),
		GatewayTimeout: getEnvDuration("GATEWAY_TIMEOUT", 15*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
