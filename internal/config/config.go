package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything read from the environment. Client and
// Broker halves are loaded together; unused sections cost nothing.
type Config struct {
	Client ClientConfig
	Broker BrokerConfig
}

// ClientConfig selects the deployment the chat client talks to. The
// WebSocket host must be configurable per deployment, never hardcoded.
type ClientConfig struct {
	WSBaseURL  string
	APIBaseURL string
	Token      string
}

// BrokerConfig configures the reference messaging broker.
type BrokerConfig struct {
	Port          string
	DatabaseDSN   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     []byte
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	return &Config{
		Client: ClientConfig{
			WSBaseURL:  getEnvOrDefault("CHAT_WS_URI", "ws://localhost:8080"),
			APIBaseURL: getEnvOrDefault("CHAT_API_BASE", "http://localhost:8080"),
			Token:      os.Getenv("CHAT_TOKEN"),
		},
		Broker: BrokerConfig{
			Port:          getEnvOrDefault("PORT", ":8080"),
			DatabaseDSN:   getEnvOrDefault("DATABASE_DSN", "host=localhost user=workchat password=workchat dbname=workchat port=5432 sslmode=disable"),
			RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			JWTSecret:     []byte(getEnvOrDefault("JWT_SECRET", "dev-only-secret")),
			ReadTimeout:   getDurationOrDefault("READ_TIMEOUT", "10s"),
			WriteTimeout:  getDurationOrDefault("WRITE_TIMEOUT", "10s"),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key, defaultValue string) time.Duration {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Invalid duration for %s: %v", key, err)
	}
	return duration
}
