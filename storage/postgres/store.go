// Package postgres implements storage.Store on PostgreSQL with the
// pgvector extension, using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/storage"
)

// Config describes a Postgres-backed store.
type Config struct {
	// ConnectionString is a libpq-style DSN or postgres:// URL.
	ConnectionString string

	// TableName is the table rows are written to. It may be schema-qualified.
	TableName string

	// Dimension is the embedding length every row must have.
	Dimension int

	// MaxConns caps the pool size. Zero keeps the pgx default.
	MaxConns int32
}

// Store writes rows to one Postgres table through a connection pool.
type Store struct {
	pool      *pgxpool.Pool
	name      string
	table     string
	dimension int
	closed    atomic.Bool
	logger    *slog.Logger
}

// NewStore connects to Postgres. It does not create the table; call
// EnsureSchema for that.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if err := storage.ValidateTableName(cfg.TableName); err != nil {
		return nil, err
	}
	if cfg.Dimension < 1 {
		return nil, fmt.Errorf("%w: dimension %d", storage.ErrDimensionMismatch, cfg.Dimension)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.AfterConnect = registerVectorType

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	logger := slog.Default().With("component", "postgres-store", "table", cfg.TableName)
	logger.Debug("connected to postgres", "host", poolCfg.ConnConfig.Host, "database", poolCfg.ConnConfig.Database)

	return &Store{
		pool:      pool,
		name:      cfg.TableName,
		table:     storage.QuoteTableName(cfg.TableName),
		dimension: cfg.Dimension,
		logger:    logger,
	}, nil
}

// registerVectorType installs the pgvector codecs on a new connection
// when the extension exists. Before EnsureSchema runs it may not.
func registerVectorType(ctx context.Context, conn *pgx.Conn) error {
	var present bool
	if err := conn.QueryRow(ctx, "SELECT to_regtype('vector') IS NOT NULL").Scan(&present); err != nil {
		return err
	}
	if !present {
		return nil
	}
	return pgxvec.RegisterTypes(ctx, conn)
}

// Dimension returns the embedding length rows must have.
func (s *Store) Dimension() int {
	return s.dimension
}

// EnsureSchema installs the vector extension and creates the table if
// needed. An existing table whose embedding column has another dimension
// yields ErrSchemaMismatch.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id VARCHAR(%d) PRIMARY KEY,
    text TEXT NOT NULL,
    metadata JSONB,
    embedding VECTOR(%d) NOT NULL
)`, s.table, core.MaxIdentityLength, s.dimension)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	// pgvector keeps the declared dimension in the column's typmod.
	var typmod int
	err := s.pool.QueryRow(ctx,
		"SELECT atttypmod FROM pg_attribute WHERE attrelid = $1::regclass AND attname = 'embedding'",
		s.table).Scan(&typmod)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: table has no embedding column", storage.ErrSchemaMismatch)
	}
	if err != nil {
		return fmt.Errorf("failed to inspect table: %w", err)
	}
	if typmod != s.dimension {
		return fmt.Errorf("%w: table holds %d-dimension vectors, configured for %d",
			storage.ErrSchemaMismatch, typmod, s.dimension)
	}

	// Connections opened before the extension existed lack the codec.
	s.pool.Reset()
	return nil
}

// Open acquires one pooled connection for the life of the session.
func (s *Store) Open(ctx context.Context) (storage.Session, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &session{store: s, conn: conn}, nil
}

// Get returns the committed row for identity.
func (s *Store) Get(ctx context.Context, identity string) (*core.EmbeddedDocument, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	var (
		doc core.EmbeddedDocument
		vec pgvector.Vector
	)
	query := fmt.Sprintf("SELECT id, text, metadata::text, embedding FROM %s WHERE id = $1", s.table)
	err := s.pool.QueryRow(ctx, query, identity).Scan(&doc.Identity, &doc.Content, &doc.Metadata, &vec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Vector = vec.Slice()
	return &doc, nil
}

// Count returns the number of committed rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, storage.ErrStorageClosed
	}
	var n int
	err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n)
	return n, err
}

// DropTable removes the table. Used by tests and the CLI's reset path.
func (s *Store) DropTable(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.table))
	return err
}

// Close closes the pool. Sessions still open are released as they close.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Debug("closing postgres pool")
	s.pool.Close()
	return nil
}

// upsertSQL builds one multi-row insert-on-conflict-do-update statement
// with numbered placeholders.
func upsertSQL(table string, n int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (id, text, metadata, embedding) VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		p := i*4 + 1
		fmt.Fprintf(&b, "($%d, $%d, $%d::jsonb, $%d)", p, p+1, p+2, p+3)
	}
	b.WriteString(" ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding")
	return b.String()
}
