// Package config provides configuration management for the retrieval
// service. It follows Uber Go Style Guide conventions for struct
// organization and error handling.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/ragforge/ragindex/internal/domain"
)

// Common configuration errors.
var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// ServiceConfig holds common configuration for an OpenAI-compatible
// remote service client.
type ServiceConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	APIKey  string `mapstructure:"api_key" validate:"required"`
	Model   string `mapstructure:"model" validate:"required"`
}

// ChunkStrategyConfig describes one named (parent_size, child_size,
// overlap_percent) triple available for ingestion requests. The same
// overlap percentage applies at both the parent and child split level,
// matching the single ω parameter the splitter takes.
type ChunkStrategyConfig struct {
	Name           string `mapstructure:"name" validate:"required"`
	ParentSize     int    `mapstructure:"parent_size" validate:"required,min=200"`
	ChildSize      int    `mapstructure:"child_size" validate:"required,min=50"`
	OverlapPercent int    `mapstructure:"overlap_percent" validate:"min=0,max=99"`
}

// Validate checks that parent spans are strictly larger than child spans
// and that the overlap percentage is in the splitter's valid range.
func (c ChunkStrategyConfig) Validate() error {
	if c.ParentSize <= c.ChildSize {
		return fmt.Errorf("%w: strategy %q: parent_size must be greater than child_size", ErrInvalidConfig, c.Name)
	}
	if c.OverlapPercent < 0 || c.OverlapPercent >= 100 {
		return fmt.Errorf("%w: strategy %q: overlap_percent must be in [0,100)", ErrInvalidConfig, c.Name)
	}
	return nil
}

// RedisConfig is optional: a zero-value Host disables the cache.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"min=0,max=65535"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0,max=15"`
}

// Enabled reports whether a Redis cache was configured.
func (c RedisConfig) Enabled() bool { return c.Host != "" }

// MinIOConfig is optional: a zero-value Endpoint disables archival.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// Enabled reports whether object-storage archival was configured.
func (c MinIOConfig) Enabled() bool { return c.Endpoint != "" }

// RerankerConfig is optional: a zero-value BaseURL skips the
// cross-encoder pre-filter and falls through to chat-based rerank.
type RerankerConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// Enabled reports whether a dedicated rerank endpoint was configured.
func (c RerankerConfig) Enabled() bool { return c.BaseURL != "" }

// Config represents the complete application configuration.
type Config struct {
	Server struct {
		Host string `mapstructure:"host" validate:"required"`
		Port string `mapstructure:"port" validate:"required,numeric"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host" validate:"required,hostname"`
		Port     int    `mapstructure:"port" validate:"required,min=1,max=65535"`
		User     string `mapstructure:"user" validate:"required"`
		Password string `mapstructure:"password" validate:"required"`
		DBName   string `mapstructure:"dbname" validate:"required"`
	} `mapstructure:"database"`

	Redis RedisConfig `mapstructure:"redis"`
	MinIO MinIOConfig `mapstructure:"minio"`

	ChunkStrategies []ChunkStrategyConfig `mapstructure:"chunk_strategies" validate:"required,min=1,dive"`

	Services struct {
		Embedding ServiceConfig  `mapstructure:"embedding"`
		Reranker  RerankerConfig `mapstructure:"reranker"`
		LLM       ServiceConfig  `mapstructure:"llm"`
	} `mapstructure:"services"`

	EmbeddingDimensions int `mapstructure:"embedding_dimensions" validate:"required,min=1"`
}

// Validate performs cross-field configuration validation beyond the
// struct tags: it checks every configured chunk strategy.
func (c *Config) Validate() error {
	for _, s := range c.ChunkStrategies {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DSN renders the Postgres connection string for pgx.
func (c *Config) DSN() string {
	db := c.Database
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", db.User, db.Password, db.Host, db.Port, db.DBName)
}

// StrategyByName returns the configured chunk strategy with the given
// name, or domain.ErrNotFound.
func (c *Config) StrategyByName(name string) (ChunkStrategyConfig, error) {
	for _, s := range c.ChunkStrategies {
		if s.Name == name {
			return s, nil
		}
	}
	return ChunkStrategyConfig{}, domain.Newf(domain.KindNotFound, "config.StrategyByName", "unknown chunk strategy %q", name)
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %v", ErrConfigNotFound, err)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults configures sensible default values.
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")

	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("minio.use_ssl", false)

	viper.SetDefault("embedding_dimensions", 1536)

	viper.SetDefault("chunk_strategies", []map[string]any{
		{
			"name":            "default",
			"parent_size":     2000,
			"child_size":      800,
			"overlap_percent": 25,
		},
	})
}

// MustLoadConfig loads configuration and panics on failure. Use this
// only in main() where failure should be fatal.
func MustLoadConfig(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
