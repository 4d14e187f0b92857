package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server configures cmd/api.
type Server struct {
	Port             string
	DatabaseURL      string // empty selects the in-memory store
	AMQPURL          string // empty disables events
	AllowedOrigins   []string
	APITokens        map[string]string // bearer token -> owner id
	SnapshotInterval time.Duration

	MailHost     string
	MailPort     int
	MailUser     string
	MailPassword string
	MailFrom     string
	NotifyEmails []string

	LogLevel  string
	LogFormat string
}

// Client configures cmd/board.
type Client struct {
	APIBaseURL     string
	APIToken       string
	CommandTimeout time.Duration
	RateLimit      float64

	LogLevel  string
	LogFormat string
}

// LoadEnv reads a .env file when present; a missing file is not an error.
func LoadEnv(files ...string) {
	_ = godotenv.Load(files...)
}

func LoadServer() *Server {
	return &Server{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		AMQPURL:          getEnv("AMQP_URL", ""),
		AllowedOrigins:   getListEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		APITokens:        parseTokens(getEnv("API_TOKENS", "")),
		SnapshotInterval: getDurationEnv("SNAPSHOT_INTERVAL", 5*time.Minute),

		MailHost:     getEnv("MAIL_HOST", ""),
		MailPort:     getIntEnv("MAIL_PORT", 587),
		MailUser:     getEnv("MAIL_USER", ""),
		MailPassword: getEnv("MAIL_PASS", ""),
		MailFrom:     getEnv("MAIL_FROM", "no-reply@ligue.local"),
		NotifyEmails: getListEnv("NOTIFY_EMAILS", nil),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

func LoadClient() *Client {
	return &Client{
		APIBaseURL:     getEnv("CRM_API_URL", "http://localhost:8080"),
		APIToken:       getEnv("CRM_API_TOKEN", ""),
		CommandTimeout: getDurationEnv("CRM_COMMAND_TIMEOUT", 30*time.Second),
		RateLimit:      getFloatEnv("CRM_RATE_LIMIT", 20),

		LogLevel:  getEnv("LOG_LEVEL", "warn"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// parseTokens reads "token:owner,token2:owner2".
func parseTokens(raw string) map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		token, owner, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || token == "" || owner == "" {
			continue
		}
		tokens[token] = owner
	}
	return tokens
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
