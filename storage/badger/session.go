package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/storage"
)

type session struct {
	store  *Store
	txn    *badger.Txn
	closed bool
}

func (s *session) begin() (*badger.Txn, error) {
	if s.closed {
		return nil, storage.ErrSessionClosed
	}
	if s.store.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if s.txn == nil {
		s.txn = s.store.backend.NewTxn(true)
	}
	return s.txn, nil
}

func (s *session) Exists(ctx context.Context, identity string) (bool, error) {
	txn, err := s.begin()
	if err != nil {
		return false, err
	}
	_, err = txn.Get(makeRowKey(s.store.table, identity))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *session) InsertMany(ctx context.Context, rows []core.EmbeddedDocument) error {
	return s.upsert(ctx, rows)
}

func (s *session) UpdateMany(ctx context.Context, rows []core.EmbeddedDocument) error {
	return s.upsert(ctx, rows)
}

// upsert stages every row in the open transaction. Badger writes are
// whole-value replacements, so insert and update are the same operation.
func (s *session) upsert(ctx context.Context, rows []core.EmbeddedDocument) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	if len(rows) == 0 {
		return nil
	}
	if err := storage.ValidateRows(rows, s.store.dimension); err != nil {
		return err
	}
	txn, err := s.begin()
	if err != nil {
		return err
	}
	for i := range rows {
		key := makeRowKey(s.store.table, rows[i].Identity)
		if err := txn.Set(key, storage.MarshalDocument(&rows[i])); err != nil {
			return fmt.Errorf("failed to stage row %q: %w", rows[i].Identity, err)
		}
	}
	return nil
}

func (s *session) Commit(ctx context.Context) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	if s.txn == nil {
		return nil
	}
	txn := s.txn
	s.txn = nil
	defer txn.Discard()
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}

func (s *session) Rollback(ctx context.Context) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	if s.txn != nil {
		s.txn.Discard()
		s.txn = nil
	}
	return nil
}

func (s *session) Close() {
	if s.closed {
		return
	}
	if s.txn != nil {
		s.txn.Discard()
		s.txn = nil
	}
	s.closed = true
}
