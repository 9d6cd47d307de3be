// Package memory provides an in-process storage.Store. It keeps no data
// across restarts and is meant for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/storage"
)

// Store holds committed rows in a map guarded by a mutex.
type Store struct {
	mu        sync.RWMutex
	rows      map[string]core.EmbeddedDocument
	dimension int
	closed    bool
}

// NewStore creates an empty store for vectors of the given dimension.
func NewStore(dimension int) (*Store, error) {
	if dimension < 1 {
		return nil, fmt.Errorf("%w: dimension %d", storage.ErrDimensionMismatch, dimension)
	}
	return &Store{
		rows:      make(map[string]core.EmbeddedDocument),
		dimension: dimension,
	}, nil
}

// Dimension returns the embedding length rows must have.
func (s *Store) Dimension() int {
	return s.dimension
}

// EnsureSchema is a no-op; the map needs no provisioning.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	return nil
}

// Open returns a new session.
func (s *Store) Open(ctx context.Context) (storage.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	return &session{store: s}, nil
}

// Get returns the committed row for identity.
func (s *Store) Get(ctx context.Context, identity string) (*core.EmbeddedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	row, ok := s.rows[identity]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := storage.CloneRow(row)
	return &out, nil
}

// Count returns the number of committed rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, storage.ErrStorageClosed
	}
	return len(s.rows), nil
}

// Close marks the store closed. Further calls fail with ErrStorageClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// session buffers writes until Commit. Reads see the buffer first.
type session struct {
	store   *Store
	pending map[string]core.EmbeddedDocument
	closed  bool
}

func (s *session) check() error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	return nil
}

func (s *session) Exists(ctx context.Context, identity string) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, ok := s.pending[identity]; ok {
		return true, nil
	}
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	if s.store.closed {
		return false, storage.ErrStorageClosed
	}
	_, ok := s.store.rows[identity]
	return ok, nil
}

func (s *session) InsertMany(ctx context.Context, rows []core.EmbeddedDocument) error {
	return s.upsert(ctx, rows)
}

func (s *session) UpdateMany(ctx context.Context, rows []core.EmbeddedDocument) error {
	return s.upsert(ctx, rows)
}

func (s *session) upsert(ctx context.Context, rows []core.EmbeddedDocument) error {
	if err := s.check(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateRows(rows, s.store.dimension); err != nil {
		return err
	}
	if s.pending == nil {
		s.pending = make(map[string]core.EmbeddedDocument, len(rows))
	}
	for _, row := range rows {
		s.pending[row.Identity] = storage.CloneRow(row)
	}
	return nil
}

func (s *session) Commit(ctx context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	if len(s.pending) == 0 {
		return nil
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.store.closed {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, storage.ErrStorageClosed)
	}
	for id, row := range s.pending {
		s.store.rows[id] = row
	}
	s.pending = nil
	return nil
}

func (s *session) Rollback(ctx context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	s.pending = nil
	return nil
}

func (s *session) Close() {
	s.pending = nil
	s.closed = true
}
