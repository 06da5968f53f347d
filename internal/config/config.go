package config

import (
	"os"
	"strconv"
	"time"

	"dashsync/internal/errors"

	"github.com/joho/godotenv"
)

// DefaultPort is the dashboard API port when PORT is unset.
const DefaultPort = "8080"

const defaultNotifyTimeout = 10 * time.Second

// Config represents the complete application configuration
type Config struct {
	Google   GoogleConfig
	Storage  StorageConfig
	Notify   NotifyConfig
	Sync     SyncConfig
	Server   ServerConfig
	Database DatabaseConfig
	Local    LocalConfig
	Logging  LoggingConfig
	Datasets []Dataset
}

// GoogleConfig holds spreadsheet source settings
type GoogleConfig struct {
	ServiceAccountKey string // base64-encoded service account JSON
	TrafficSheetID    string
	RevenueSheetID    string
	Timeout           time.Duration
}

// StorageConfig holds object store settings
type StorageConfig struct {
	Bucket  string
	Region  string
	LogKey  string
	Timeout time.Duration
}

// NotifyConfig holds notification sink settings
type NotifyConfig struct {
	SlackWebhookURL string
	Timeout         time.Duration
	NotifySuccess   bool
}

// SyncConfig holds priority and run-log tuning
type SyncConfig struct {
	PriorityTopN int
	HistoryLimit int
	// Concurrency caps parallel dataset fetches after revenue; 0 is unbounded.
	Concurrency int
}

// ServerConfig holds dashboard API settings
type ServerConfig struct {
	Port         string
	GinMode      string
	E2ETestToken string
}

// DatabaseConfig holds the optional run archive connection
type DatabaseConfig struct {
	URL string
}

// LocalConfig switches collaborators to local implementations for development
type LocalConfig struct {
	Workbook string
	StoreDir string
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string
}

// Load reads configuration from a .env file (when present) and the
// environment, and validates it.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	config := &Config{
		Google:   loadGoogleConfig(),
		Storage:  loadStorageConfig(),
		Notify:   loadNotifyConfig(),
		Sync:     loadSyncConfig(),
		Server:   loadServerConfig(),
		Database: DatabaseConfig{URL: getEnvOrDefault("DATABASE_URL", "")},
		Local: LocalConfig{
			Workbook: getEnvOrDefault("LOCAL_WORKBOOK", ""),
			StoreDir: getEnvOrDefault("LOCAL_STORE_DIR", ""),
		},
		Logging: LoggingConfig{Level: getEnvOrDefault("LOG_LEVEL", "info")},
	}
	config.Datasets = DefaultDatasets(config.Google.TrafficSheetID, config.Google.RevenueSheetID)

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadGoogleConfig() GoogleConfig {
	return GoogleConfig{
		ServiceAccountKey: getEnvOrDefault("GOOGLE_SERVICE_ACCOUNT_KEY", ""),
		TrafficSheetID:    getEnvOrDefault("TRAFFIC_DR_SHEET_ID", "1Vcyl9hrxdKUfKufHdM9csZjEQcS0rt3tLRyNR1f4uR8"),
		RevenueSheetID:    getEnvOrDefault("REVENUE_SHEET_ID", "1a4XNaxHJ7U7pJhfraGRDr9qEVsTGdCAUgx_QLJoLQXA"),
		Timeout:           getEnvDurationOrDefault("SHEETS_TIMEOUT", 60*time.Second),
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Bucket:  getEnvOrDefault("S3_BUCKET_NAME", "traffic-dashboard-theta"),
		Region:  getEnvOrDefault("AWS_REGION", "ap-southeast-2"),
		LogKey:  getEnvOrDefault("SYNC_LOG_KEY", "sync-log.json"),
		Timeout: getEnvDurationOrDefault("STORAGE_TIMEOUT", 30*time.Second),
	}
}

// LoadNotifyConfig reads only the notification settings, so a sync whose
// full configuration is invalid can still raise an alert. A non-positive
// timeout falls back to the default.
func LoadNotifyConfig() NotifyConfig {
	_ = godotenv.Load()
	cfg := loadNotifyConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultNotifyTimeout
	}
	return cfg
}

func loadNotifyConfig() NotifyConfig {
	return NotifyConfig{
		SlackWebhookURL: getEnvOrDefault("SLACK_WEBHOOK_URL", ""),
		Timeout:         getEnvDurationOrDefault("NOTIFY_TIMEOUT", defaultNotifyTimeout),
		NotifySuccess:   getEnvBoolOrDefault("NOTIFY_SUCCESS", false),
	}
}

func loadSyncConfig() SyncConfig {
	return SyncConfig{
		PriorityTopN: getEnvIntOrDefault("PRIORITY_TOP_N", 100),
		HistoryLimit: getEnvIntOrDefault("HISTORY_LIMIT", 20),
		Concurrency:  getEnvIntOrDefault("SYNC_CONCURRENCY", 0),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:         getEnvOrDefault("PORT", DefaultPort),
		GinMode:      getEnvOrDefault("GIN_MODE", "release"),
		E2ETestToken: getEnvOrDefault("E2E_TEST_TOKEN", ""),
	}
}

func validateConfig(config *Config) error {
	if config.Storage.Bucket == "" && config.Local.StoreDir == "" {
		return errors.ConfigInvalid("S3_BUCKET_NAME or LOCAL_STORE_DIR is required")
	}
	if config.Sync.PriorityTopN <= 0 {
		return errors.ConfigInvalid("PRIORITY_TOP_N must be positive")
	}
	if config.Sync.HistoryLimit <= 0 {
		return errors.ConfigInvalid("HISTORY_LIMIT must be positive")
	}
	if config.Sync.Concurrency < 0 {
		return errors.ConfigInvalid("SYNC_CONCURRENCY must not be negative")
	}
	for _, timeout := range []time.Duration{config.Google.Timeout, config.Storage.Timeout, config.Notify.Timeout} {
		if timeout <= 0 {
			return errors.ConfigInvalid("timeouts must be positive")
		}
	}
	return nil
}

// RequireSheetsCredentials reports a config error when no spreadsheet
// source is configured. Only the sync command needs one.
func (c *Config) RequireSheetsCredentials() error {
	if c.Local.Workbook == "" && c.Google.ServiceAccountKey == "" {
		return errors.ConfigInvalid("GOOGLE_SERVICE_ACCOUNT_KEY or LOCAL_WORKBOOK is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
