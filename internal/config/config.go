package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"curatex-attachments"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Background job tuning
	ScanInterval      time.Duration `envconfig:"SCAN_INTERVAL" default:"30s"`
	ScanBatchSize     int           `envconfig:"SCAN_BATCH_SIZE" default:"10"`
	PromotionInterval time.Duration `envconfig:"PROMOTION_INTERVAL" default:"1m"`
	PromotionBatch    int           `envconfig:"PROMOTION_BATCH" default:"25"`
	ReapInterval      time.Duration `envconfig:"REAP_INTERVAL" default:"1h"`

	// Bootstrap: create initial tenant and API key on startup
	InitTenantName string `envconfig:"INIT_TENANT_NAME"`
	InitAPIKey     string `envconfig:"INIT_API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CURATEX", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
