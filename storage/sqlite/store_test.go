package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/storage"
	"github.com/poiesic/vectorsink/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T, dimension int) storage.ReadableStore {
	store, err := NewStore(context.Background(), Config{Path: MemoryPath, TableName: "documents", Dimension: dimension})
	require.NoError(t, err)
	return store
}

func newFileStore(t *testing.T, dimension int) storage.ReadableStore {
	path := filepath.Join(t.TempDir(), "vectors.db")
	store, err := NewStore(context.Background(), Config{Path: path, TableName: "documents", Dimension: dimension})
	require.NoError(t, err)
	return store
}

func TestStoreContract_Memory(t *testing.T) {
	storagetest.Run(t, newMemoryStore)
}

func TestStoreContract_File(t *testing.T) {
	storagetest.Run(t, newFileStore)
}

func TestNewStore_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewStore(ctx, Config{Path: MemoryPath, TableName: "bad name", Dimension: 2})
	assert.ErrorIs(t, err, storage.ErrInvalidTableName)

	_, err = NewStore(ctx, Config{Path: MemoryPath, TableName: "docs", Dimension: 0})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestEnsureSchema_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.db")

	store, err := NewStore(ctx, Config{Path: path, TableName: "documents", Dimension: 2})
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))

	s, err := store.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, s.InsertMany(ctx, []core.EmbeddedDocument{storagetest.Row("a", "x", nil, 1)}))
	require.NoError(t, s.Commit(ctx))
	s.Close()
	require.NoError(t, store.Close())

	reopened, err := NewStore(ctx, Config{Path: path, TableName: "documents", Dimension: 3})
	require.NoError(t, err)
	defer reopened.Close()

	err = reopened.EnsureSchema(ctx)
	assert.ErrorIs(t, err, storage.ErrSchemaMismatch)
}

func TestFileStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "vectors.db")

	store, err := NewStore(ctx, Config{Path: path, TableName: "documents", Dimension: 2})
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))

	s, err := store.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, s.InsertMany(ctx, []core.EmbeddedDocument{storagetest.Row("a", "x", storagetest.Ptr(`{"n":1}`), 1)}))
	require.NoError(t, s.Commit(ctx))
	s.Close()
	require.NoError(t, store.Close())

	reopened, err := NewStore(ctx, Config{Path: path, TableName: "documents", Dimension: 2})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Content)
	assert.JSONEq(t, `{"n":1}`, *got.Metadata)
}

func TestStore_ClosedOperations(t *testing.T) {
	store := newMemoryStore(t, 2)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err := store.Open(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, store.EnsureSchema(context.Background()), storage.ErrStorageClosed)
}

func TestUpsertSQL(t *testing.T) {
	got := upsertSQL(`"docs"`, 2)
	assert.Equal(t,
		`INSERT INTO "docs" (id, text, metadata, embedding) VALUES (?, ?, ?, ?), (?, ?, ?, ?) `+
			`ON CONFLICT(id) DO UPDATE SET text = excluded.text, metadata = excluded.metadata, embedding = excluded.embedding`,
		got)
}
