package ingestion

import (
	"context"
	"errors"
	"iter"
	"slices"
	"testing"

	"github.com/poiesic/vectorsink/ai/mock"
	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/storage"
	"github.com/poiesic/vectorsink/storage/memory"
	"github.com/poiesic/vectorsink/storage/sqlite"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// testSession implements storage.Session with injectable failures and
// records every call.
type testSession struct {
	existing map[string]bool

	existsErr error
	insertErr error
	updateErr error
	commitErr error

	existsCalls []string
	inserted    [][]core.EmbeddedDocument
	updated     [][]core.EmbeddedDocument
	commits     int
	rollbacks   int
	closes      int
}

func (s *testSession) Exists(ctx context.Context, identity string) (bool, error) {
	s.existsCalls = append(s.existsCalls, identity)
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.existing[identity], nil
}

func (s *testSession) InsertMany(ctx context.Context, rows []core.EmbeddedDocument) error {
	s.inserted = append(s.inserted, rows)
	return s.insertErr
}

func (s *testSession) UpdateMany(ctx context.Context, rows []core.EmbeddedDocument) error {
	s.updated = append(s.updated, rows)
	return s.updateErr
}

func (s *testSession) Commit(ctx context.Context) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.commits++
	return nil
}

func (s *testSession) Rollback(ctx context.Context) error {
	s.rollbacks++
	return nil
}

func (s *testSession) Close() {
	s.closes++
}

// testStore hands out a single testSession.
type testStore struct {
	session   *testSession
	dimension int
	openErr   error
}

func (s *testStore) Open(ctx context.Context) (storage.Session, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.session, nil
}

func (s *testStore) EnsureSchema(ctx context.Context) error { return nil }
func (s *testStore) Dimension() int                         { return s.dimension }
func (s *testStore) Close() error                           { return nil }

// recordingMonitor captures everything a Monitor is told.
type recordingMonitor struct {
	states    []State
	committed []int
	finished  int
	report    *Report
	err       error
}

func (m *recordingMonitor) StateChanged(from, to State) {
	m.states = append(m.states, to)
}

func (m *recordingMonitor) BatchCommitted(index, inserted, updated int) {
	m.committed = append(m.committed, index)
}

func (m *recordingMonitor) Finished(report *Report, err error) {
	m.finished++
	m.report = report
	m.err = err
}

type backend struct {
	name     string
	newStore func(t *testing.T, dimension int) storage.ReadableStore
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T, dimension int) storage.ReadableStore {
			store, err := memory.NewStore(dimension)
			require.NoError(t, err)
			require.NoError(t, store.EnsureSchema(context.Background()))
			t.Cleanup(func() { store.Close() })
			return store
		}},
		{"sqlite", func(t *testing.T, dimension int) storage.ReadableStore {
			store, err := sqlite.NewStore(context.Background(), sqlite.Config{
				Path:      sqlite.MemoryPath,
				TableName: "documents",
				Dimension: dimension,
			})
			require.NoError(t, err)
			require.NoError(t, store.EnsureSchema(context.Background()))
			t.Cleanup(func() { store.Close() })
			return store
		}},
	}
}

// constantEmbedder returns vector for every text.
func constantEmbedder(vector ...float32) *mock.MockEmbedder {
	embedder := mock.NewMockEmbedder(len(vector))
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return slices.Clone(vector), nil
	}
	return embedder
}

func doc(id, content string) core.Document {
	return core.Document{Identity: id, Content: content}
}

func docsOf(docs ...core.Document) iter.Seq[core.Document] {
	return slices.Values(docs)
}

func newTestPipeline(t *testing.T, store storage.Store, embedder *mock.MockEmbedder, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(store, embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}
