// Package config provides configuration management for the Nagar Palika assistant.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (highest priority)
//  2. External .env file in the working directory
//  3. Embedded .env file (fallback, included in binary)
//  4. Hard-coded defaults (lowest priority)
//
// Every integration is optional. With an empty environment the service
// runs fully in-memory with no Telegram, Redis or translation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// embeddedEnv contains the .env file embedded at build time.
//
// It only holds template values. Real tokens belong in the environment.
//
//go:embed .env
var embeddedEnv string

// Config holds all application configuration.
//
// This struct is immutable after creation.
type Config struct {
	// HTTP API
	HTTPAddr string // Listen address for the gin server

	// Conversation pacing
	TypingDelay      time.Duration // Pause before answering a free-text turn
	QuickActionDelay time.Duration // Pause before answering a button press
	TurnQueueSize    int           // Turns allowed to wait behind the one in progress
	RecentLimit      int           // Complaints shown in a status reply

	// WhatsApp handoff
	ContactPhone    string // Municipal office number, digits only with country code
	HandoffLanguage string // Target language for the translated handoff text

	// Telegram (optional)
	TelegramBotToken    string
	TelegramChatID      string // Chat served as the citizen conversation
	TelegramStaffChatID string // Chat receiving escalations and handoffs; empty uses TelegramChatID

	// Debug mode - Telegram calls are logged instead of sent
	DebugMode bool

	// Redis user store (optional, in-memory when RedisAddr is empty)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	UserTTL       time.Duration

	// Google Cloud Translation (optional)
	TranslateAPIKey string

	// Category catalog override; empty uses the embedded catalog
	CatalogFile string
}

// LoadConfig loads configuration from environment variables with defaults.
//
// Loading process:
//  1. Parse embedded .env file and set as fallback environment variables
//  2. Try to load external .env file
//  3. Read environment variables, applying defaults for missing values
//  4. Validate
func LoadConfig() (*Config, error) {
	envMap, err := godotenv.Unmarshal(embeddedEnv)
	if err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr: getEnvOrDefault("HTTP_ADDR", ":8080"),

		TypingDelay:      getEnvDuration("TYPING_DELAY", 1500*time.Millisecond),
		QuickActionDelay: getEnvDuration("QUICK_ACTION_DELAY", 1000*time.Millisecond),
		TurnQueueSize:    getEnvInt("TURN_QUEUE_SIZE", 4),
		RecentLimit:      getEnvInt("RECENT_LIMIT", 3),

		ContactPhone:    getEnvOrDefault("CONTACT_PHONE", "918808201876"),
		HandoffLanguage: getEnvOrDefault("HANDOFF_LANGUAGE", "hi"),

		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:      os.Getenv("TELEGRAM_CHAT_ID"),
		TelegramStaffChatID: os.Getenv("TELEGRAM_STAFF_CHAT_ID"),

		DebugMode: getEnvOrDefault("DEBUG_MODE", "false") == "true",

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		UserTTL:       getEnvDuration("USER_TTL", 24*time.Hour),

		TranslateAPIKey: os.Getenv("GOOGLE_TRANSLATE_API_KEY"),

		CatalogFile: os.Getenv("CATALOG_FILE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that values are sensible.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR cannot be empty")
	}
	if c.TypingDelay < 0 {
		return fmt.Errorf("TYPING_DELAY cannot be negative, got %s", c.TypingDelay)
	}
	if c.QuickActionDelay < 0 {
		return fmt.Errorf("QUICK_ACTION_DELAY cannot be negative, got %s", c.QuickActionDelay)
	}
	if c.TurnQueueSize < 0 {
		return fmt.Errorf("TURN_QUEUE_SIZE cannot be negative, got %d", c.TurnQueueSize)
	}
	if c.RecentLimit < 1 {
		return fmt.Errorf("RECENT_LIMIT must be at least 1, got %d", c.RecentLimit)
	}
	if c.ContactPhone == "" {
		return fmt.Errorf("CONTACT_PHONE cannot be empty")
	}
	for _, r := range c.ContactPhone {
		if r < '0' || r > '9' {
			return fmt.Errorf("CONTACT_PHONE must contain digits only, got %q", c.ContactPhone)
		}
	}
	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	if c.UserTTL <= 0 {
		return fmt.Errorf("USER_TTL must be positive, got %s", c.UserTTL)
	}

	return nil
}

// TelegramEnabled reports whether the Telegram surface should start.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// getEnvOrDefault returns the environment variable value or a default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an integer or a default if not set/invalid
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default if not set/invalid.
//
// Accepts standard Go duration strings like "1500ms", "10m", "24h"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
