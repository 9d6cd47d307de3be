// Package sqlite implements storage.Store on a pure-Go SQLite database.
//
// Vectors are stored as little-endian float32 BLOBs whose length is
// enforced by a CHECK constraint; metadata is JSON text validated with
// json_valid.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/storage"
	_ "modernc.org/sqlite"
)

// MemoryPath selects a private in-memory database.
const MemoryPath = ":memory:"

// DefaultBusyTimeout is how long a writer waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// Config describes a SQLite-backed store.
type Config struct {
	// Path is the database file, or MemoryPath.
	Path string

	// TableName is the table rows are written to. It may be schema-qualified.
	TableName string

	// Dimension is the embedding length every row must have.
	Dimension int

	// BusyTimeout overrides DefaultBusyTimeout.
	BusyTimeout time.Duration
}

// Store writes rows to one SQLite table.
type Store struct {
	db        *sql.DB
	table     string
	dimension int
	closed    atomic.Bool
	logger    *slog.Logger
}

// NewStore opens (creating if needed) the database at cfg.Path.
// It does not create the table; call EnsureSchema for that.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if err := storage.ValidateTableName(cfg.TableName); err != nil {
		return nil, err
	}
	if cfg.Dimension < 1 {
		return nil, fmt.Errorf("%w: dimension %d", storage.ErrDimensionMismatch, cfg.Dimension)
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultBusyTimeout
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger := slog.Default().With("component", "sqlite-store", "table", cfg.TableName)
	logger.Debug("opened sqlite database", "path", cfg.Path)

	return &Store{
		db:        db,
		table:     storage.QuoteTableName(cfg.TableName),
		dimension: cfg.Dimension,
		logger:    logger,
	}, nil
}

func openDB(cfg Config) (*sql.DB, error) {
	if cfg.Path == "" || cfg.Path == MemoryPath {
		db, err := sql.Open("sqlite", MemoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
		return db, nil
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// modernc.org/sqlite uses "sqlite" driver name (not "sqlite3")
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_txlock=immediate",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Dimension returns the embedding length rows must have.
func (s *Store) Dimension() int {
	return s.dimension
}

// EnsureSchema creates the table if needed and checks that existing rows
// match the configured dimension.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    metadata TEXT CHECK (metadata IS NULL OR json_valid(metadata)),
    embedding BLOB NOT NULL CHECK (length(embedding) = %d)
)`, s.table, s.dimension*4)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	var size int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT length(embedding) FROM %s LIMIT 1", s.table)).Scan(&size)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("failed to inspect table: %w", err)
	case size != s.dimension*4:
		return fmt.Errorf("%w: table holds %d-dimension vectors, configured for %d",
			storage.ErrSchemaMismatch, size/4, s.dimension)
	}
	return nil
}

// Open returns a session. Its transaction begins with the first operation.
func (s *Store) Open(ctx context.Context) (storage.Session, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	return &session{store: s}, nil
}

// Get returns the committed row for identity.
func (s *Store) Get(ctx context.Context, identity string) (*core.EmbeddedDocument, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	var (
		doc      core.EmbeddedDocument
		metadata sql.NullString
		blob     []byte
	)
	query := fmt.Sprintf("SELECT id, text, metadata, embedding FROM %s WHERE id = ?", s.table)
	err := s.db.QueryRowContext(ctx, query, identity).Scan(&doc.Identity, &doc.Content, &metadata, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if metadata.Valid {
		doc.Metadata = &metadata.String
	}
	doc.Vector, err = storage.DecodeEmbedding(blob)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Count returns the number of committed rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, storage.ErrStorageClosed
	}
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Debug("closing sqlite database")
	return s.db.Close()
}

// upsertSQL builds one multi-row insert-on-conflict-do-update statement.
func upsertSQL(table string, n int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (id, text, metadata, embedding) VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?)")
	}
	b.WriteString(" ON CONFLICT(id) DO UPDATE SET text = excluded.text, metadata = excluded.metadata, embedding = excluded.embedding")
	return b.String()
}
