// Package storagetest holds a behavioral test suite that every
// storage.ReadableStore implementation must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Dimension is the embedding length the suite configures stores with.
const Dimension = 2

// Factory returns a fresh, empty store with the given dimension. The store
// is closed by the suite.
type Factory func(t *testing.T, dimension int) storage.ReadableStore

// Row builds a test row with a Dimension-length vector.
func Row(id, content string, metadata *string, x float32) core.EmbeddedDocument {
	return core.EmbeddedDocument{
		Identity: id,
		Content:  content,
		Metadata: metadata,
		Vector:   []float32{x, 1 - x},
	}
}

// Ptr returns a pointer to s.
func Ptr(s string) *string { return &s }

// Run exercises the full Store/Session/Reader contract.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store storage.ReadableStore)
	}{
		{"EnsureSchemaIdempotent", testEnsureSchemaIdempotent},
		{"InsertCommitGet", testInsertCommitGet},
		{"ExistsSeesOwnTransaction", testExistsSeesOwnTransaction},
		{"RollbackDiscards", testRollbackDiscards},
		{"CloseDiscardsUncommitted", testCloseDiscardsUncommitted},
		{"CloseIdempotent", testCloseIdempotent},
		{"UpdateReplacesAllColumns", testUpdateReplacesAllColumns},
		{"InsertExistingUpserts", testInsertExistingUpserts},
		{"UpdateMissingCreates", testUpdateMissingCreates},
		{"DuplicateIdentitiesLastWins", testDuplicateIdentitiesLastWins},
		{"NullMetadataDistinctFromEmpty", testNullMetadataDistinctFromEmpty},
		{"DimensionMismatchWritesNothing", testDimensionMismatchWritesNothing},
		{"EmptyWritesAreNoops", testEmptyWritesAreNoops},
		{"CommitPerBatch", testCommitPerBatch},
		{"GetMissing", testGetMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t, Dimension)
			t.Cleanup(func() { store.Close() })
			require.NoError(t, store.EnsureSchema(context.Background()))
			require.Equal(t, Dimension, store.Dimension())
			tt.fn(t, store)
		})
	}
}

func open(t *testing.T, store storage.Store) storage.Session {
	t.Helper()
	session, err := store.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(session.Close)
	return session
}

func count(t *testing.T, store storage.Reader) int {
	t.Helper()
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	return n
}

func testEnsureSchemaIdempotent(t *testing.T, store storage.ReadableStore) {
	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.Equal(t, 0, count(t, store))
}

func testInsertCommitGet(t *testing.T, store storage.ReadableStore) {
	ctx := context.Background()
	s := open(t, store)

	require.NoError(t, s.InsertMany(ctx, []core.EmbeddedDocument{
		Row("a", "x", Ptr(`{"k":"v"}`), 1),
		Row("b", "y", nil, 0),
	}))
	require.NoError(t, s.Commit(ctx))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Identity)
	assert.Equal(t, "x", got.Content)
	require.NotNil(t, got.Metadata)
	assert.JSONEq(t, `{"k":"v"}`, *got.Metadata)
	assert.Equal(t, []float32{1, 0}, got.Vector)

	assert.Equal(t, 2, count(t, store))
}

func testExistsSeesOwnTransaction(t *testing.T, store storage.ReadableStore) {
	ctx := context.Background()
	s := open(t, store)

	ok, err := s.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.InsertMany(ctx, []core.EmbeddedDocument{Row("a", "x", nil, 1)}))

	ok, err = s.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok, "existence must not leak across identities")

	require.NoError(t, s.Commit(ctx))
}

func testRollbackDiscards(t *testing.T, store storage.ReadableStore) {
	ctx := context.Background()
	s := open(t, store)

	require.NoError(t, s.InsertMany(ctx, []core.EmbeddedDocument{Row("a", "x", nil, 1)}))
	require.NoError(t, s.Rollback(ctx))

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// The session stays usable after a rollback.
	require.NoError(t, s.InsertMany(ctx, []core.EmbeddedDocument{Row("b", "y", nil, 1)}))
	require.NoError(t, s.Commit(ctx))
	assert.Equal(t, 1, count(t, store))
}

func testCloseDiscardsUncommitted(t *testing.T, store storage.ReadableStore) {
	ctx := context.Background()
	s, err := store.Open(ctx)
	require.NoError(t, err)

	require.NoError(t, s.InsertMany(ctx, []core.EmbeddedDocument{Row("a", "x", nil, 1)}))
	s.Close()

	assert.Equal(t, 0, count(t, store))
}

func testCloseIdempotent(t *testing.T, store storage.ReadableStore) {
	ctx := context.Background()
	s, err := store.Open(ctx)
	require.NoError(t, err)

	s.Close()
	s.Close()

	_, err = s.Exists(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrSessionClosed)
	err = s.InsertMany(ctx, []core.EmbeddedDocument{Row("a", "x", nil, 1)})
	assert.ErrorIs(t, err, storage.ErrSessionClosed)
	assert.ErrorIs(t, s.Commit(ctx), storage.ErrSessionClosed)
}

func testUpdateReplacesAllColumns(t *testing.T, store storage.ReadableStore) {
	ctx := context.Background()
	s := open(t, store)

	require.NoError(t, s.InsertMany(ctx, []core.EmbeddedDocument{Row("a", "x", Ptr(`{"k":1}`), 1)}))
	require.NoError(t, s.Commit(ctx))

	require.NoError(t, s.UpdateMany(ctx, []core.EmbeddedDocument{Row("a", "z", nil, 0)}))
	require.NoError(t, s.Commit(ctx))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "z", got.Content)
	assert.Nil(t, got.Metadata, "metadata must be replaced, not merged")
	assert.Equal(t, []float32{0, 1}, got.Vector)
	assert.Equal(t, 1, count(t, store))
}

func testInsertExistingUpserts(t *testing.T, store storage.ReadableStore) {
	ctx := context.Background()
	s := open(t, store)

	require.NoError(t, s.InsertMany(ctx, []core.EmbeddedDocument{Row("a", "x", nil, 1)}))
	require.NoError(t, s.Commit(ctx))

	// A stale classification: the row exists but is written as new.
	require.NoError(t, s.InsertMany(ctx, []core.EmbeddedDocument{Row("a", "y", nil, 0)}))
	require.NoError(t, s.Commit(ctx))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "y", got.Content)
	assert.Equal(t, 1, count(t, store))
}

func testUpdateMissingCreates(t *testing.T, store storage.ReadableStore) {
	ctx := context.Background()
	s := open(t, store)

	require.NoError(t, s.UpdateMany(ctx, []core.EmbeddedDocument{Row("ghost", "boo", nil, 1)}))
	require.NoError(t, s.Commit(ctx))

	got, err := store.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, "boo", got.Content)
}

func testDuplicateIdentitiesLastWins(t *testing.T, store storage.ReadableStore) {
	ctx := context.Background()
	s := open(t, store)

	require.NoError(t, s.InsertMany(ctx, []core.EmbeddedDocument{
		Row("a", "first", nil, 1),
		Row("b", "other", nil, 1),
		Row("a", "second", nil, 0),
	}))
	require.NoError(t, s.Commit(ctx))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Content)
	assert.Equal(t, 2, count(t, store))
}

func testNullMetadataDistinctFromEmpty(t *testing.T, store storage.ReadableStore) {
	ctx := context.Background()
	s := open(t, store)

	require.NoError(t, s.InsertMany(ctx, []core.EmbeddedDocument{
		Row("none", "x", nil, 1),
		Row("empty", "x", Ptr("{}"), 1),
	}))
	require.NoError(t, s.Commit(ctx))

	none, err := store.Get(ctx, "none")
	require.NoError(t, err)
	assert.Nil(t, none.Metadata)

	empty, err := store.Get(ctx, "empty")
	require.NoError(t, err)
	require.NotNil(t, empty.Metadata)
	assert.JSONEq(t, "{}", *empty.Metadata)
}

func testDimensionMismatchWritesNothing(t *testing.T, store storage.ReadableStore) {
	ctx := context.Background()
	s := open(t, store)

	bad := core.EmbeddedDocument{Identity: "bad", Content: "x", Vector: []float32{1, 0, 0}}
	err := s.InsertMany(ctx, []core.EmbeddedDocument{Row("good", "x", nil, 1), bad})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrDimensionMismatch), "got %v", err)

	err = s.UpdateMany(ctx, []core.EmbeddedDocument{bad})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	require.NoError(t, s.Rollback(ctx))
	assert.Equal(t, 0, count(t, store))
}

func testEmptyWritesAreNoops(t *testing.T, store storage.ReadableStore) {
	ctx := context.Background()
	s := open(t, store)

	require.NoError(t, s.InsertMany(ctx, nil))
	require.NoError(t, s.UpdateMany(ctx, []core.EmbeddedDocument{}))
	require.NoError(t, s.Commit(ctx))
	require.NoError(t, s.Rollback(ctx))
	assert.Equal(t, 0, count(t, store))
}

func testCommitPerBatch(t *testing.T, store storage.ReadableStore) {
	ctx := context.Background()
	s := open(t, store)

	require.NoError(t, s.InsertMany(ctx, []core.EmbeddedDocument{Row("a", "x", nil, 1)}))
	require.NoError(t, s.Commit(ctx))

	require.NoError(t, s.InsertMany(ctx, []core.EmbeddedDocument{Row("b", "y", nil, 1)}))
	require.NoError(t, s.Rollback(ctx))

	_, err := store.Get(ctx, "a")
	assert.NoError(t, err, "earlier commit must survive a later rollback")
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testGetMissing(t *testing.T, store storage.ReadableStore) {
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
