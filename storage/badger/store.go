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


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/storage"
)

// Config describes a badger-backed store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in memory.
	InMemory bool

	// TableName namespaces the keys this store writes.
	TableName string

	// Dimension is the embedding length every row must have.
	Dimension int
}

// Store keeps rows as MUS-encoded values keyed by table and identity.
type Store struct {
	backend   *Backend
	table     string
	dimension int
	logger    *slog.Logger
}

// NewStore opens the badger database described by cfg. The store owns the
// database and closes it on Close.
func NewStore(cfg Config) (*Store, error) {
	if err := storage.ValidateTableName(cfg.TableName); err != nil {
		return nil, err
	}
	if cfg.Dimension < 1 {
		return nil, fmt.Errorf("%w: dimension %d", storage.ErrDimensionMismatch, cfg.Dimension)
	}
	backend, err := OpenBackend(cfg.Path, cfg.InMemory)
	if err != nil {
		return nil, err
	}
	return &Store{
		backend:   backend,
		table:     cfg.TableName,
		dimension: cfg.Dimension,
		logger:    backend.logger.With("table", cfg.TableName),
	}, nil
}

// Dimension returns the embedding length rows must have.
func (s *Store) Dimension() int {
	return s.dimension
}

// EnsureSchema records the table's dimension on first use and rejects a
// later store configured with a different one.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	key := makeDimensionKey(s.table)
	return s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			buf := make([]byte, varint.Int.Size(s.dimension))
			varint.Int.Marshal(s.dimension, buf)
			s.logger.Debug("recording table dimension", "dimension", s.dimension)
			return tx.Set(key, buf)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			dim, _, err := varint.Int.Unmarshal(val)
			if err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			if dim != s.dimension {
				return fmt.Errorf("%w: table holds %d-dimension vectors, configured for %d",
					storage.ErrSchemaMismatch, dim, s.dimension)
			}
			return nil
		})
	}, true)
}

// Open returns a session. Its transaction begins with the first operation.
func (s *Store) Open(ctx context.Context) (storage.Session, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	return &session{store: s}, nil
}

// Get returns the committed row for identity.
func (s *Store) Get(ctx context.Context, identity string) (*core.EmbeddedDocument, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var doc *core.EmbeddedDocument
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRowKey(s.table, identity))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			doc, err = storage.UnmarshalDocument(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Count returns the number of committed rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}
	n := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeRowPrefix(s.table)
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			n++
		}
		return nil
	}, false)
	return n, err
}

// Identities returns every stored identity in key order.
func (s *Store) Identities(ctx context.Context) ([]string, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var ids []string
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeRowPrefix(s.table)
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			ids = append(ids, identityFromKey(s.table, iter.Item().KeyCopy(nil)))
		}
		return nil
	}, false)
	return ids, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.backend.IsClosed() {
		return nil
	}
	return s.backend.Close()
}
