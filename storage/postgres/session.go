package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/storage"
)

type session struct {
	store  *Store
	conn   *pgxpool.Conn
	tx     pgx.Tx
	closed bool
}

func (s *session) begin(ctx context.Context) (pgx.Tx, error) {
	if s.closed {
		return nil, storage.ErrSessionClosed
	}
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	return tx, nil
}

func (s *session) Exists(ctx context.Context, identity string) (bool, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)", s.store.table)
	if err := tx.QueryRow(ctx, query, identity).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *session) InsertMany(ctx context.Context, rows []core.EmbeddedDocument) error {
	return s.upsert(ctx, rows)
}

func (s *session) UpdateMany(ctx context.Context, rows []core.EmbeddedDocument) error {
	return s.upsert(ctx, rows)
}

// upsert writes rows with one statement. ON CONFLICT DO UPDATE may not
// touch a key twice, so duplicates are collapsed first.
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
	rows = storage.LastWriteWins(rows)

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}

	args := make([]any, 0, len(rows)*4)
	for i := range rows {
		args = append(args, rows[i].Identity, rows[i].Content, rows[i].Metadata, pgvector.NewVector(rows[i].Vector))
	}
	if _, err := tx.Exec(ctx, upsertSQL(s.store.table, len(rows)), args...); err != nil {
		return fmt.Errorf("failed to write %d rows: %w", len(rows), err)
	}
	return nil
}

func (s *session) Commit(ctx context.Context) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}

func (s *session) Rollback(ctx context.Context) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(ctx); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}

// Close rolls back with a fresh context so a canceled caller context
// still leaves the connection clean for the pool.
func (s *session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.tx != nil {
		if err := s.tx.Rollback(context.Background()); err != nil {
			s.store.logger.Debug("rollback on close failed", "err", err)
		}
		s.tx = nil
	}
	s.conn.Release()
}
