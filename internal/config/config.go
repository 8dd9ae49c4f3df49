package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Approval ApprovalConfig
	Chaos    ChaosConfig
	Storage  StorageConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	ConnMaxLifetime time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
}

// StorageConfig selects the backing store for the gateway
type StorageConfig struct {
	Driver string // memory or postgres
}

// KafkaConfig holds event publishing configuration. Empty Brokers disables
// publishing entirely.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ApprovalMode controls how the simulator decides pending payments
type ApprovalMode string

const (
	ApprovalModeAuto   ApprovalMode = "auto"   // decide after Delay based on wallet funds
	ApprovalModeManual ApprovalMode = "manual" // wait for the confirm endpoint
)

// ApprovalConfig holds the simulated payer-approval behaviour
type ApprovalConfig struct {
	Mode  ApprovalMode
	Delay time.Duration
}

// ChaosConfig holds latency and failure injection settings
type ChaosConfig struct {
	FailureRate  float64
	MinLatencyMS int
	MaxLatencyMS int
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level string // debug, info, warn, error
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "momoflow"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "memory"),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsSlice("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "payment_decided"),
		},
		Approval: ApprovalConfig{
			Mode:  ApprovalMode(getEnv("APPROVAL_MODE", string(ApprovalModeAuto))),
			Delay: getEnvAsDuration("APPROVAL_DELAY", "20s"),
		},
		Chaos: ChaosConfig{
			FailureRate:  getEnvAsFloat("FAILURE_RATE", 0),
			MinLatencyMS: getEnvAsInt("MIN_LATENCY_MS", 0),
			MaxLatencyMS: getEnvAsInt("MAX_LATENCY_MS", 0),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host cannot be empty")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name cannot be empty")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s (must be memory or postgres)", c.Storage.Driver)
	}

	switch c.Approval.Mode {
	case ApprovalModeAuto, ApprovalModeManual:
	default:
		return fmt.Errorf("invalid approval mode: %s (must be auto or manual)", c.Approval.Mode)
	}
	if c.Approval.Delay < 0 {
		return fmt.Errorf("approval delay cannot be negative")
	}

	if c.Chaos.FailureRate < 0 || c.Chaos.FailureRate > 1 {
		return fmt.Errorf("failure rate must be between 0 and 1, got %f", c.Chaos.FailureRate)
	}
	if c.Chaos.MinLatencyMS < 0 {
		return fmt.Errorf("min latency cannot be negative")
	}
	if c.Chaos.MaxLatencyMS < c.Chaos.MinLatencyMS {
		return fmt.Errorf("max latency (%d) must be >= min latency (%d)", c.Chaos.MaxLatencyMS, c.Chaos.MinLatencyMS)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to parsing the default if provided value is invalid
		duration, err = time.ParseDuration(defaultValue)
		if err != nil {
			return 0
		}
	}
	return duration
}

func getEnvAsSlice(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
