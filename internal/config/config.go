package config

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	LogLevel string `yaml:"log_level"`
	// AwsConfig: AWS SDK uses a shared configuration object that contains
	// credentials, region, retry policies, etc. The S3 client is created
	// from this single config.
	AwsConfig aws.Config
	// GcsClient: Google Cloud SDK uses individual service clients that
	// handle their own configuration internally via environment variables,
	// service account files, or metadata service. Nil when no GCP
	// credentials are available; gs:// locations then fail at use.
	GcsClient *storage.Client

	// Locations are the default object URLs or prefixes to stream.
	Locations []string `yaml:"locations"`
	// ShuffleKeys enables the per-epoch deterministic key permutation.
	ShuffleKeys bool `yaml:"shuffle_keys"`
	// ShuffleBuffer is the reservoir size for record-level shuffling;
	// 0 disables the reservoir.
	ShuffleBuffer int `yaml:"shuffle_buffer"`
}

// LoadConfig loads configuration from config.yaml, environment variables, or CLI flags
// Priority: CLI flags > Environment variables > config.yaml > defaults
func LoadConfig(configPath string, rootCmd *cobra.Command) (*Config, error) {
	if err := setupViper(configPath, rootCmd); err != nil {
		return nil, err
	}

	awsConfig, err := loadAWSConfig()
	if err != nil {
		return nil, err
	}

	logLevel := viper.GetString("log_level")
	if flagLevel := viper.GetString("log-level"); flagLevel != "" {
		logLevel = flagLevel
	}

	return &Config{
		LogLevel:      logLevel,
		AwsConfig:     awsConfig,
		GcsClient:     loadGCSClient(),
		Locations:     viper.GetStringSlice("locations"),
		ShuffleKeys:   viper.GetBool("shuffle_keys"),
		ShuffleBuffer: viper.GetInt("shuffle_buffer"),
	}, nil
}

// setupViper configures Viper with defaults, paths, and bindings
func setupViper(configPath string, rootCmd *cobra.Command) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	setDefaults()
	viper.AutomaticEnv()

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("shuffle_keys", false)
	viper.SetDefault("shuffle_buffer", 0)
}

// loadAWSConfig loads AWS SDK configuration
func loadAWSConfig() (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS SDK config: %v", err)
	}
	return cfg, nil
}

// loadGCSClient loads the Google Cloud Storage client. Missing GCP
// credentials are not fatal; s3:// and mem:// locations work without them.
func loadGCSClient() *storage.Client {
	client, err := storage.NewClient(context.Background())
	if err != nil {
		log.Warnf("GCS client unavailable, gs:// locations disabled: %v", err)
		return nil
	}
	return client
}

// SetConfigValue sets a configuration value (used for CLI flags)
func SetConfigValue(key string, value interface{}) {
	viper.Set(key, value)
}
