package vectorsink

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/vectorsink/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, ingestion.DefaultBatchSize, cfg.Ingestion.BatchSize)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectorsink.toml")
	err := os.WriteFile(path, []byte(`
[store]
driver = "postgres"
connection_string = "postgres://localhost/vectors"
table_name = "public.items"
max_conns = 4

[embedding]
host = "https://api.openai.com"
model = "text-embedding-3-small"
dimension = 1536
requests_per_second = 10.5
burst = 3

[ingestion]
batch_size = 64
workers = 4
normalize = true
max_retries = 2
retry_delay = "250ms"
`), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "public.items", cfg.Store.TableName)
	assert.Equal(t, int32(4), cfg.Store.MaxConns)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, 10.5, cfg.Embedding.RequestsPerSecond)
	assert.Equal(t, 64, cfg.Ingestion.BatchSize)
	assert.True(t, cfg.Ingestion.Normalize)
	assert.False(t, cfg.Ingestion.BulkEmbedding)

	delay, err := cfg.RetryDelay()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, delay)

	aiCfg := cfg.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "https://api.openai.com/v1", aiCfg.EmbeddingHost)
	assert.Equal(t, 3, aiCfg.Burst)
}

func TestLoadConfig_KeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store]\ndriver = \"memory\"\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, DefaultTableName, cfg.Store.TableName)
	assert.Equal(t, ingestion.DefaultBatchSize, cfg.Ingestion.BatchSize)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store\n"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv(EnvConnectionString, "postgres://env/db")
	t.Setenv(EnvAPIKey, "sk-test")
	t.Setenv(EnvEmbeddingDim, "384")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.Store.ConnectionString)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, 384, cfg.Embedding.Dimension)

	t.Setenv(EnvEmbeddingDim, "wide")
	_, err = LoadConfig("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, ErrUnknownDriver},
		{"postgres without dsn", func(c *Config) {
			c.Store.Driver = DriverPostgres
			c.Store.ConnectionString = ""
		}, ErrInvalidConfig},
		{"bad table", func(c *Config) { c.Store.TableName = "docs; DROP TABLE x" }, ErrInvalidConfig},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }, ErrInvalidConfig},
		{"huge batch", func(c *Config) { c.Ingestion.BatchSize = ingestion.MaxBatchSize + 1 }, ErrInvalidConfig},
		{"zero workers", func(c *Config) { c.Ingestion.Workers = 0 }, ErrInvalidConfig},
		{"negative retries", func(c *Config) { c.Ingestion.MaxRetries = -1 }, ErrInvalidConfig},
		{"bad delay", func(c *Config) { c.Ingestion.RetryDelay = "soon" }, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}
