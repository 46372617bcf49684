package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"homeapi-backend/models"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// APIKeyPrefix and APIKeyLength pin the wire format of issued API keys:
// "ha_" followed by a 32-character hyphen-free UUID, 35 bytes total.
const (
	APIKeyPrefix = "ha_"
	APIKeyLength = 35
)

// GetConfig read the configuration from environment variables or config files
func GetConfig() (*models.Config, error) {
	config, err := Load()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return config, nil
}

// Load initializes and returns the application configuration using Viper
func Load() (*models.Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// Config file not found, continue with defaults and env vars
		fmt.Printf("Config file not found (%v), using defaults and environment variables\n", err)
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config models.Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "HomeAPI Backend")
	v.SetDefault("app_version", "1.0.0")
	v.SetDefault("app_env", "development")
	v.SetDefault("app_host", "0.0.0.0")
	v.SetDefault("app_port", "8080")

	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("aws_access_key_id", "")
	v.SetDefault("aws_secret_access_key", "")
	v.SetDefault("dynamodb_endpoint", "")
	v.SetDefault("dynamodb_table", "homeapi")

	v.SetDefault("google_client_id", "")
	v.SetDefault("google_certs_url", "https://www.googleapis.com/oauth2/v3/certs")

	v.SetDefault("nature_remo_token", "")
	v.SetDefault("nature_remo_base_url", "https://api.nature.global")
	v.SetDefault("import_schedule", "@every 5m")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("cors_origins", []string{"*"})

	v.SetDefault("basePath", "/")
}

// validate checks required configuration values
func validate(cfg *models.Config) error {
	if cfg.DynamoDBTable == "" {
		return fmt.Errorf("dynamodb_table must be set")
	}
	if cfg.AppPort == "" {
		return fmt.Errorf("app_port must be set")
	}
	return nil
}

// GenerateAPIKey creates a new cleartext API key: "ha_" plus a UUID v4 with
// the hyphens stripped, 35 characters in total.
func GenerateAPIKey() string {
	return APIKeyPrefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// ValidAPIKeyFormat reports whether a token looks like an issued API key.
func ValidAPIKeyFormat(token string) bool {
	return strings.HasPrefix(token, APIKeyPrefix) && len(token) == APIKeyLength
}

// HashAPIKey returns the SHA-256 hex digest under which a key is stored.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
