package ingestion

import (
	"context"
	"testing"

	"github.com/poiesic/vectorsink/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_WritesBothSubsets(t *testing.T) {
	session := &testSession{}
	result := &core.ClassificationResult{
		ToInsert: embedded("a", "b").Documents,
		ToUpdate: embedded("c").Documents,
	}

	require.NoError(t, Execute(context.Background(), session, result))

	require.Len(t, session.inserted, 1)
	require.Len(t, session.updated, 1)
	assert.Equal(t, []string{"a", "b"}, identities(session.inserted[0]))
	assert.Equal(t, []string{"c"}, identities(session.updated[0]))
	assert.Zero(t, session.commits, "the caller owns the transaction")
}

func TestExecute_SkipsEmptySubsets(t *testing.T) {
	session := &testSession{}

	require.NoError(t, Execute(context.Background(), session, &core.ClassificationResult{
		ToUpdate: embedded("a").Documents,
	}))
	assert.Empty(t, session.inserted)
	assert.Len(t, session.updated, 1)

	session = &testSession{}
	require.NoError(t, Execute(context.Background(), session, &core.ClassificationResult{}))
	assert.Empty(t, session.inserted)
	assert.Empty(t, session.updated)
}

func TestExecute_PropagatesErrors(t *testing.T) {
	session := &testSession{insertErr: errBoom}
	err := Execute(context.Background(), session, &core.ClassificationResult{
		ToInsert: embedded("a").Documents,
		ToUpdate: embedded("b").Documents,
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, session.updated, "update is not attempted after a failed insert")

	session = &testSession{updateErr: errBoom}
	err = Execute(context.Background(), session, &core.ClassificationResult{
		ToUpdate: embedded("b").Documents,
	})
	assert.ErrorIs(t, err, errBoom)
}
