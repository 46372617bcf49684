package models

// Config holds all configuration for the application
type Config struct {
	// Application
	AppName    string `mapstructure:"app_name"`
	AppVersion string `mapstructure:"app_version"`
	AppEnv     string `mapstructure:"app_env"`
	AppHost    string `mapstructure:"app_host"`
	AppPort    string `mapstructure:"app_port"`

	// AWS
	AWSRegion          string `mapstructure:"aws_region"`
	AWSAccessKeyID     string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key"`
	DynamoDBEndpoint   string `mapstructure:"dynamodb_endpoint"`
	DynamoDBTable      string `mapstructure:"dynamodb_table"`

	// Google OAuth
	GoogleClientID string `mapstructure:"google_client_id"`
	GoogleCertsURL string `mapstructure:"google_certs_url"`

	// Nature Remo import
	NatureRemoToken   string `mapstructure:"nature_remo_token"`
	NatureRemoBaseURL string `mapstructure:"nature_remo_base_url"`
	ImportSchedule    string `mapstructure:"import_schedule"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// CORS
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Base Path
	BasePath string `mapstructure:"basePath"`
}
