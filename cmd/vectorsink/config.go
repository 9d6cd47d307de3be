package main

import (
	"github.com/poiesic/vectorsink"
	"github.com/urfave/cli/v2"
)

// loadConfig reads --config and applies any flags set on the command line.
func loadConfig(c *cli.Context) (*vectorsink.Config, error) {
	cfg, err := vectorsink.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("driver") {
		cfg.Store.Driver = c.String("driver")
	}
	if c.IsSet("dsn") {
		cfg.Store.ConnectionString = c.String("dsn")
	}
	if c.IsSet("table") {
		cfg.Store.TableName = c.String("table")
	}
	if c.IsSet("dimension") {
		cfg.Embedding.Dimension = c.Int("dimension")
	}
	if c.IsSet("embedding-host") {
		cfg.Embedding.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.Embedding.Model = c.String("embedding-model")
	}
	if c.IsSet("api-key") {
		cfg.Embedding.APIKey = c.String("api-key")
	}
	if c.IsSet("rps") {
		cfg.Embedding.RequestsPerSecond = c.Float64("rps")
	}
	if c.IsSet("batch-size") {
		cfg.Ingestion.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("workers") {
		cfg.Ingestion.Workers = c.Int("workers")
	}
	if c.IsSet("normalize") {
		cfg.Ingestion.Normalize = c.Bool("normalize")
	}
	if c.IsSet("bulk") {
		cfg.Ingestion.BulkEmbedding = c.Bool("bulk")
	}
	if c.IsSet("max-retries") {
		cfg.Ingestion.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		cfg.Ingestion.RetryDelay = c.Duration("retry-delay").String()
	}

	return cfg, cfg.Validate()
}
