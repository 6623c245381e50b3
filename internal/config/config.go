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

	// Fingerprint cache store. Optional: without it every run
	// reprocesses its whole partition.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	FeedURL string `envconfig:"FEED_URL"`

	// External summarization capability
	DigestURL    string `envconfig:"DIGEST_URL"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL"`

	SummarizeTimeout time.Duration `envconfig:"SUMMARIZE_TIMEOUT" default:"5m"`

	S3Endpoint     string `envconfig:"S3_ENDPOINT"`
	S3AccessKey    string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey    string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket       string `envconfig:"S3_BUCKET" default:"reposift-summaries"`
	S3Region       string `envconfig:"S3_REGION" default:"auto"`
	S3Prefix       string `envconfig:"S3_PREFIX" default:"summaries"`
	S3UsePathStyle bool   `envconfig:"S3_USE_PATH_STYLE" default:"false"`

	// Managed search index
	SearchEndpoint string `envconfig:"SEARCH_ENDPOINT"`
	SearchAPIKey   string `envconfig:"SEARCH_API_KEY"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("REPOSIFT", &cfg); err != nil {
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

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasDigest() bool {
	return c.DigestURL != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSearch() bool {
	return c.SearchEndpoint != ""
}
