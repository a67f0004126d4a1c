package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	RemoteStoreURL    string
	RemoteStoreAPIKey string
	RemoteTimeout     time.Duration

	CacheDir    string
	DatabaseURL string // optional: Postgres-backed ledger + archive

	RabbitMQURL string // optional: lead event publishing

	SMTPHost       string // optional: stale lead digests
	SMTPPort       int
	SMTPUser       string
	SMTPPass       string
	SMTPFrom       string
	DigestInterval time.Duration

	ReconcileInterval time.Duration
}

var AppConfig Config

func Load() error {
	godotenv.Load()

	AppConfig = Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		RemoteStoreURL:    os.Getenv("REMOTE_STORE_URL"),
		RemoteStoreAPIKey: os.Getenv("REMOTE_STORE_API_KEY"),
		RemoteTimeout:     getDuration("REMOTE_TIMEOUT", 10*time.Second),
		CacheDir:          getEnv("CACHE_DIR", "./data"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RabbitMQURL:       os.Getenv("RABBITMQ_URL"),
		SMTPHost:          os.Getenv("MAIL_HOST"),
		SMTPPort:          getInt("MAIL_PORT", 587),
		SMTPUser:          os.Getenv("MAIL_USER"),
		SMTPPass:          os.Getenv("MAIL_PASS"),
		SMTPFrom:          getEnv("MAIL_FROM", "no-reply@harborpoint.example"),
		DigestInterval:    getDuration("DIGEST_INTERVAL", 24*time.Hour),
		ReconcileInterval: getDuration("RECONCILE_INTERVAL", 2*time.Minute),
	}

	if AppConfig.RemoteStoreURL == "" {
		return fmt.Errorf("REMOTE_STORE_URL is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
