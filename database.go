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

// Package vectorsink wires a configured row store and embedding provider
// into an ingestion pipeline.
package vectorsink

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/poiesic/vectorsink/ai"
	"github.com/poiesic/vectorsink/ai/openai"
	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/ingestion"
	"github.com/poiesic/vectorsink/storage"
	"github.com/poiesic/vectorsink/storage/badger"
	"github.com/poiesic/vectorsink/storage/memory"
	"github.com/poiesic/vectorsink/storage/postgres"
	"github.com/poiesic/vectorsink/storage/sqlite"
)

type Database struct {
	config   *Config
	store    storage.ReadableStore
	provider ai.AIProvider
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithProvider supplies the embedding provider instead of building an
// OpenAI-compatible one from the config. The Database closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open validates config, connects the store and builds the provider.
// It does not create the table; call EnsureSchema for that.
func Open(ctx context.Context, config *Config, opts ...DatabaseOption) (*Database, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger.With("component", "vectorsink")

	store, err := openStore(ctx, config)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(config.AIConfig())
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	logger.Debug("opened database",
		"driver", config.Store.Driver,
		"table", config.Store.TableName,
		"dimension", store.Dimension())

	return &Database{
		config:   config,
		store:    store,
		provider: provider,
		logger:   logger,
	}, nil
}

func openStore(ctx context.Context, config *Config) (storage.ReadableStore, error) {
	sc := config.Store
	dim := config.Embedding.Dimension

	var (
		store storage.ReadableStore
		err   error
	)
	switch sc.Driver {
	case DriverPostgres:
		store, err = unwrapStore(postgres.NewStore(ctx, postgres.Config{
			ConnectionString: sc.ConnectionString,
			TableName:        sc.TableName,
			Dimension:        dim,
			MaxConns:         sc.MaxConns,
		}))
	case DriverSQLite:
		store, err = unwrapStore(sqlite.NewStore(ctx, sqlite.Config{
			Path:      sc.ConnectionString,
			TableName: sc.TableName,
			Dimension: dim,
		}))
	case DriverBadger:
		store, err = unwrapStore(badger.NewStore(badger.Config{
			Path:      sc.ConnectionString,
			InMemory:  sc.ConnectionString == "",
			TableName: sc.TableName,
			Dimension: dim,
		}))
	case DriverMemory:
		store, err = unwrapStore(memory.NewStore(dim))
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownDriver, sc.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", sc.Driver, err)
	}
	return store, nil
}

// unwrapStore keeps a failed constructor's typed nil out of the interface.
func unwrapStore[S storage.ReadableStore](store S, err error) (storage.ReadableStore, error) {
	if err != nil {
		return nil, err
	}
	return store, nil
}

// EnsureSchema creates the configured table if it does not exist.
func (db *Database) EnsureSchema(ctx context.Context) error {
	return db.store.EnsureSchema(ctx)
}

// Store returns the row store.
func (db *Database) Store() storage.ReadableStore {
	return db.store
}

// Embedder returns the embedding service.
func (db *Database) Embedder() ai.Embedder {
	return db.provider.Embedder()
}

// Config returns the validated configuration.
func (db *Database) Config() *Config {
	return db.config
}

// NewIngestionPipeline builds a pipeline from the ingestion config. opts
// are applied after the configured ones and override them.
// The caller must Release the pipeline.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	all := append(db.config.PipelineOptions(), ingestion.WithLogger(db.logger))
	all = append(all, opts...)
	return ingestion.NewPipeline(db.store, db.provider.Embedder(), all...)
}

// Ingest runs one pipeline over source, retrying transient failures up to
// Ingestion.MaxRetries times. source must replay the same documents on
// every call.
func (db *Database) Ingest(ctx context.Context, source func() iter.Seq[core.Document], opts ...ingestion.Option) (*ingestion.Report, error) {
	p, err := db.NewIngestionPipeline(opts...)
	if err != nil {
		return nil, err
	}
	defer p.Release()

	delay, err := db.config.RetryDelay()
	if err != nil {
		return nil, err
	}
	return ingestion.IngestWithRetry(ctx, p, source, db.config.Ingestion.MaxRetries+1, delay)
}

func (db *Database) Close() error {
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	if err := db.store.Close(); err != nil {
		db.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}
