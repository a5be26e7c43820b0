package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	// Payment gateway settings
	GatewayBaseURL       string
	GatewayAPIKey        string
	GatewayCallbackToken string // shared secret the gateway echoes in webhook headers
	GatewaySuccessURL    string
	GatewayFailureURL    string
	InvoiceDuration      time.Duration // how long a hosted invoice stays payable
	PaymentSweepInterval time.Duration // how often stale PENDING payments are re-checked

	// Logging
	LogMode string // "development" | "production"
	LogFile string // empty disables file output
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=tokopos port=5432 sslmode=disable"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		GatewayBaseURL:       getEnv("GATEWAY_BASE_URL", "https://api.xendit.co"),
		GatewayAPIKey:        getEnv("GATEWAY_API_KEY", ""),
		GatewayCallbackToken: getEnv("GATEWAY_CALLBACK_TOKEN", ""),
		GatewaySuccessURL:    getEnv("GATEWAY_SUCCESS_URL", "http://localhost:5173/payment/success"),
		GatewayFailureURL:    getEnv("GATEWAY_FAILURE_URL", "http://localhost:5173/payment/failed"),
		InvoiceDuration:      getEnvDuration("INVOICE_DURATION", 24*time.Hour),
		PaymentSweepInterval: getEnvDuration("PAYMENT_SWEEP_INTERVAL", 5*time.Minute),

		LogMode: getEnv("LOG_MODE", "development"),
		LogFile: getEnv("LOG_FILE", ""),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set; it is mandatory")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET must be at least 32 characters")
	}
	if cfg.GatewayAPIKey == "" {
		log.Println("[WARN] GATEWAY_API_KEY is not set; digital payment initiation will fail")
	}
	if cfg.GatewayCallbackToken == "" {
		log.Println("[WARN] GATEWAY_CALLBACK_TOKEN is not set; webhook calls are not verified")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("[WARN] %s has an invalid duration %q, using default %s", key, v, def)
	return def
}
