// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vectorsink

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/vectorsink/ai"
	"github.com/poiesic/vectorsink/ingestion"
	"github.com/poiesic/vectorsink/storage"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverBadger   = "badger"
	DriverMemory   = "memory"
)

const (
	// DefaultTableName is the table documents are written to.
	DefaultTableName = "documents"

	// DefaultRetryDelay is the first backoff between ingestion attempts.
	DefaultRetryDelay = "1s"
)

// Environment variables consulted by LoadConfig after the file is read.
const (
	EnvConnectionString = "VECTORSINK_CONNECTION_STRING"
	EnvAPIKey           = "VECTORSINK_API_KEY"
	EnvEmbeddingHost    = "VECTORSINK_EMBEDDING_HOST"
	EnvEmbeddingModel   = "VECTORSINK_EMBEDDING_MODEL"
	EnvEmbeddingDim     = "VECTORSINK_EMBEDDING_DIMENSION"
)

// Config is the complete configuration of a Database.
type Config struct {
	Store     StoreConfig     `toml:"store"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Ingestion IngestionConfig `toml:"ingestion"`
}

// StoreConfig selects and addresses the row store.
type StoreConfig struct {
	Driver string `toml:"driver"` // postgres, sqlite, badger or memory

	// ConnectionString is a Postgres DSN, a SQLite file path or a Badger
	// directory. Empty selects an in-memory database for sqlite and badger.
	ConnectionString string `toml:"connection_string"`

	TableName string `toml:"table_name"`
	MaxConns  int32  `toml:"max_conns"` // postgres only
}

// EmbeddingConfig describes the OpenAI-compatible embedding service.
type EmbeddingConfig struct {
	Host              string  `toml:"host"`
	Model             string  `toml:"model"`
	APIKey            string  `toml:"api_key"`
	Dimension         int     `toml:"dimension"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// IngestionConfig tunes the pipeline.
type IngestionConfig struct {
	BatchSize     int    `toml:"batch_size"`
	Workers       int    `toml:"workers"`
	Normalize     bool   `toml:"normalize"`
	BulkEmbedding bool   `toml:"bulk_embedding"`
	MaxRetries    int    `toml:"max_retries"` // extra attempts after the first
	RetryDelay    string `toml:"retry_delay"` // e.g. "500ms", doubles per retry
}

// DefaultConfig returns a configuration for a local SQLite file and a
// local OpenAI-compatible embedding server.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:           DriverSQLite,
			ConnectionString: "vectorsink.db",
			TableName:        DefaultTableName,
		},
		Embedding: EmbeddingConfig{
			Host:      ai.DefaultEmbeddingHost,
			Model:     ai.DefaultEmbeddingModel,
			Dimension: ai.DefaultEmbeddingDimension,
			Burst:     1,
		},
		Ingestion: IngestionConfig{
			BatchSize:  ingestion.DefaultBatchSize,
			Workers:    1,
			RetryDelay: DefaultRetryDelay,
		},
	}
}

// LoadConfig reads a TOML file over the defaults, then applies
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	if dsn := os.Getenv(EnvConnectionString); dsn != "" {
		c.Store.ConnectionString = dsn
	}
	if key := os.Getenv(EnvAPIKey); key != "" {
		c.Embedding.APIKey = key
	}
	if host := os.Getenv(EnvEmbeddingHost); host != "" {
		c.Embedding.Host = host
	}
	if model := os.Getenv(EnvEmbeddingModel); model != "" {
		c.Embedding.Model = model
	}
	if dim := os.Getenv(EnvEmbeddingDim); dim != "" {
		d, err := strconv.Atoi(dim)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, EnvEmbeddingDim, dim)
		}
		c.Embedding.Dimension = d
	}
	return nil
}

// Validate checks the configuration as a whole.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.ConnectionString == "" {
			return fmt.Errorf("%w: postgres requires a connection string", ErrInvalidConfig)
		}
	case DriverSQLite, DriverBadger, DriverMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Store.Driver)
	}

	if err := storage.ValidateTableName(c.Store.TableName); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Ingestion.BatchSize < 1 || c.Ingestion.BatchSize > ingestion.MaxBatchSize {
		return fmt.Errorf("%w: batch_size must be between 1 and %d", ErrInvalidConfig, ingestion.MaxBatchSize)
	}
	if c.Ingestion.Workers < 1 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	if c.Ingestion.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries cannot be negative", ErrInvalidConfig)
	}
	if _, err := c.RetryDelay(); err != nil {
		return err
	}
	return nil
}

// AIConfig converts the embedding section for ai/openai.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithEmbeddingDimension(c.Embedding.Dimension),
		ai.WithAPIKey(c.Embedding.APIKey),
		ai.WithRateLimit(c.Embedding.RequestsPerSecond, c.Embedding.Burst),
	)
}

// PipelineOptions converts the ingestion section to pipeline options.
func (c *Config) PipelineOptions() []ingestion.Option {
	return []ingestion.Option{
		ingestion.WithBatchSize(c.Ingestion.BatchSize),
		ingestion.WithEmbeddingWorkers(c.Ingestion.Workers),
		ingestion.WithNormalize(c.Ingestion.Normalize),
		ingestion.WithBulkEmbedding(c.Ingestion.BulkEmbedding),
	}
}

// RetryDelay parses Ingestion.RetryDelay. Empty means DefaultRetryDelay.
func (c *Config) RetryDelay() (time.Duration, error) {
	raw := c.Ingestion.RetryDelay
	if raw == "" {
		raw = DefaultRetryDelay
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: retry_delay %q", ErrInvalidConfig, raw)
	}
	return d, nil
}
