package vectorsink

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/poiesic/vectorsink/ai/mock"
	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/ingestion"
	"github.com/poiesic/vectorsink/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(driver, conn string) *Config {
	cfg := DefaultConfig()
	cfg.Store.Driver = driver
	cfg.Store.ConnectionString = conn
	cfg.Embedding.Dimension = 8
	cfg.Ingestion.BatchSize = 2
	cfg.Ingestion.RetryDelay = "1ms"
	return cfg
}

func openTestDatabase(t *testing.T, cfg *Config) (*Database, *mock.MockProvider) {
	t.Helper()
	provider := mock.NewMockProvider(cfg.Embedding.Dimension).(*mock.MockProvider)
	db, err := Open(context.Background(), cfg, WithProvider(provider))
	require.NoError(t, err)
	require.NoError(t, db.EnsureSchema(context.Background()))
	t.Cleanup(func() { db.Close() })
	return db, provider
}

func source(docs ...core.Document) func() iter.Seq[core.Document] {
	return func() iter.Seq[core.Document] { return slices.Values(docs) }
}

func TestOpen_Drivers(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"memory", testConfig(DriverMemory, "")},
		{"sqlite memory", testConfig(DriverSQLite, "")},
		{"sqlite file", testConfig(DriverSQLite, filepath.Join(t.TempDir(), "sink.db"))},
		{"badger memory", testConfig(DriverBadger, "")},
		{"badger dir", testConfig(DriverBadger, filepath.Join(t.TempDir(), "badger"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db, _ := openTestDatabase(t, tt.cfg)
			assert.Equal(t, 8, db.Store().Dimension())

			report, err := db.Ingest(ctx, source(
				core.Document{Identity: "a", Content: "alpha"},
				core.Document{Identity: "b", Content: "beta", Metadata: map[string]any{"n": 1}},
				core.Document{Identity: "c", Content: "gamma"},
			))
			require.NoError(t, err)
			assert.Equal(t, 3, report.Inserted)
			assert.Equal(t, 2, report.Batches)
			assert.Equal(t, 1, report.Attempts)

			row, err := db.Store().Get(ctx, "b")
			require.NoError(t, err)
			assert.Equal(t, "beta", row.Content)
			assert.Len(t, row.Vector, 8)

			count, err := db.Store().Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, count)
		})
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := testConfig("oracle", "")
	db, err := Open(context.Background(), cfg, WithProvider(mock.NewMockProvider(8)))
	assert.ErrorIs(t, err, ErrUnknownDriver)
	assert.Nil(t, db)

	cfg = testConfig(DriverPostgres, "")
	_, err = Open(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpen_BadStorePath(t *testing.T) {
	notADir := filepath.Join(t.TempDir(), "not_a_dir")
	require.NoError(t, os.WriteFile(notADir, []byte("test"), 0644))

	db, err := Open(context.Background(), testConfig(DriverBadger, notADir), WithProvider(mock.NewMockProvider(8)))
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestDatabase_Close(t *testing.T) {
	provider := mock.NewMockProvider(8).(*mock.MockProvider)
	db, err := Open(context.Background(), testConfig(DriverMemory, ""), WithProvider(provider))
	require.NoError(t, err)

	require.NoError(t, db.Close())
	assert.True(t, provider.Closed())

	_, err = db.Store().Open(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestDatabase_PipelineOptionsOverride(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDatabase(t, testConfig(DriverMemory, ""))

	p, err := db.NewIngestionPipeline()
	require.NoError(t, err)
	defer p.Release()
	assert.Equal(t, 2, p.BatchSize())

	p2, err := db.NewIngestionPipeline(ingestion.WithBatchSize(5))
	require.NoError(t, err)
	defer p2.Release()
	assert.Equal(t, 5, p2.BatchSize())

	report, err := p2.Ingest(ctx, source(core.Document{Identity: "a", Content: "x"})())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Batches)
}

func TestDatabase_IngestRetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(DriverMemory, "")
	cfg.Ingestion.MaxRetries = 2
	db, provider := openTestDatabase(t, cfg)

	embedder := provider.GetMockEmbedder()
	failures := 1
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if failures > 0 {
			failures--
			return nil, assert.AnError
		}
		return make([]float32, 8), nil
	}

	report, err := db.Ingest(ctx, source(core.Document{Identity: "a", Content: "x"}))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempts)
	assert.Equal(t, 1, report.Inserted)
}
