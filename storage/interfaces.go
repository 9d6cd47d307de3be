package storage

import (
	"context"

	"github.com/poiesic/vectorsink/core"
)

// Store is a transactional row store keyed by document identity.
// Implementations must be safe for concurrent use; the Sessions they hand
// out are not.
type Store interface {
	// Open acquires a session. The session holds at most one open
	// transaction at a time, begun lazily by its first operation.
	Open(ctx context.Context) (Session, error)

	// EnsureSchema creates the table (and anything it depends on) if it
	// does not exist. Returns ErrSchemaMismatch when an existing table
	// was created for a different embedding dimension.
	EnsureSchema(ctx context.Context) error

	// Dimension returns the embedding length every row must have.
	Dimension() int

	// Close closes the storage backend and releases resources.
	Close() error
}

// Session is the narrow capability the ingestion pipeline writes through.
// A Session is used by a single goroutine.
type Session interface {
	// Exists reports whether a row with the given identity is visible to
	// the session's current transaction.
	Exists(ctx context.Context, identity string) (bool, error)

	// InsertMany writes rows believed to be new in one statement.
	// An identity that already exists is overwritten, never duplicated.
	InsertMany(ctx context.Context, rows []core.EmbeddedDocument) error

	// UpdateMany writes rows believed to exist in one statement.
	// All columns are replaced; an identity that does not exist is created.
	UpdateMany(ctx context.Context, rows []core.EmbeddedDocument) error

	// Commit makes the current transaction durable. With no open
	// transaction it does nothing.
	Commit(ctx context.Context) error

	// Rollback discards the current transaction. With no open
	// transaction it does nothing.
	Rollback(ctx context.Context) error

	// Close rolls back any open transaction and releases the session.
	// It is idempotent and never fails observably.
	Close()
}

// Reader reads committed rows back. It is not a similarity search.
type Reader interface {
	// Get returns the row stored for identity, or ErrNotFound.
	Get(ctx context.Context, identity string) (*core.EmbeddedDocument, error)

	// Count returns the number of stored rows.
	Count(ctx context.Context) (int, error)
}

// ReadableStore is a Store that can also read its rows back.
// Every backend in this module implements it.
type ReadableStore interface {
	Store
	Reader
}
