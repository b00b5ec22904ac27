// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Form      FormConfig
	Honeypot  HoneypotConfig
	Delivery  DeliveryConfig
	CORS      CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `validate:"required"`
	Port string `validate:"required,numeric"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn warning error"`
	Format string `validate:"oneof=json text"`
	Output string `validate:"required"`
}

// RateLimitConfig holds the per-window submission limits.
type RateLimitConfig struct {
	MinuteLimit   int           `validate:"min=1"`
	HourLimit     int           `validate:"min=1"`
	DayLimit      int           `validate:"min=1"`
	SweepInterval time.Duration `validate:"min=1m"`
}

// FormConfig holds field validation rules.
type FormConfig struct {
	RequiredFields   []string `validate:"min=1"`
	MaxNameLength    int      `validate:"min=1"`
	MaxEmailLength   int      `validate:"min=1"`
	MaxMessageLength int      `validate:"min=1"`
	MaxSubjectLength int      `validate:"min=1"`
	SpamPhrases      []string
}

// HoneypotConfig holds the decoy field names checked for bot detection.
type HoneypotConfig struct {
	Fields []string `validate:"min=1"`
}

// DeliveryConfig holds the outbound email provider settings.
type DeliveryConfig struct {
	Enabled       bool
	APIKey        string `validate:"required_if=Enabled true"`
	Endpoint      string `validate:"omitempty,url"`
	From          string `validate:"required_if=Enabled true,omitempty,email"`
	To            string `validate:"required_if=Enabled true,omitempty,email"`
	ReplyTo       string `validate:"omitempty,email"`
	SubjectPrefix string
	Timeout       time.Duration `validate:"min=1s"`
}

// CORSConfig holds the allowed origins for the form endpoint.
type CORSConfig struct {
	AllowedOrigins []string `validate:"min=1"`
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("FORM_SERVER_HOST", "0.0.0.0"),
			Port: getEnv("FORM_SERVER_PORT", "4567"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		RateLimit: RateLimitConfig{
			MinuteLimit:   getIntEnv("RATE_LIMIT_PER_MINUTE", 5),
			HourLimit:     getIntEnv("RATE_LIMIT_PER_HOUR", 20),
			DayLimit:      getIntEnv("RATE_LIMIT_PER_DAY", 100),
			SweepInterval: getDurationEnv("RATE_LIMIT_SWEEP_INTERVAL", 15*time.Minute),
		},
		Form: FormConfig{
			RequiredFields:   getListEnv("FORM_REQUIRED_FIELDS", []string{"name", "email", "message"}),
			MaxNameLength:    getIntEnv("FORM_MAX_NAME_LENGTH", 100),
			MaxEmailLength:   getIntEnv("FORM_MAX_EMAIL_LENGTH", 255),
			MaxMessageLength: getIntEnv("FORM_MAX_MESSAGE_LENGTH", 5000),
			MaxSubjectLength: getIntEnv("FORM_MAX_SUBJECT_LENGTH", 200),
			SpamPhrases:      getListEnv("FORM_SPAM_PHRASES", nil),
		},
		Honeypot: HoneypotConfig{
			Fields: getListEnv("FORM_HONEYPOT_FIELDS",
				[]string{"website", "url", "homepage", "hp_field", "bot_field", "spam_check"}),
		},
		Delivery: DeliveryConfig{
			Enabled:       getBoolEnv("DELIVERY_ENABLED", false),
			APIKey:        getEnv("DELIVERY_API_KEY", ""),
			Endpoint:      getEnv("DELIVERY_ENDPOINT", ""),
			From:          getEnv("DELIVERY_FROM", ""),
			To:            getEnv("DELIVERY_TO", ""),
			ReplyTo:       getEnv("DELIVERY_REPLY_TO", ""),
			SubjectPrefix: getEnv("DELIVERY_SUBJECT_PREFIX", "[Contact Form]"),
			Timeout:       getDurationEnv("DELIVERY_TIMEOUT", 10*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
	}
}

// Validate checks the loaded configuration for inconsistencies before the
// server starts.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
	}
	return fmt.Errorf("invalid configuration: %w", err)
}

// getEnv returns the environment variable value or the default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getListEnv parses a comma-separated environment variable.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
