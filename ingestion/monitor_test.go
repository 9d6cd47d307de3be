package ingestion

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressMonitor_ReportsAtInterval(t *testing.T) {
	var buf bytes.Buffer
	monitor := NewProgressMonitor(&buf, 10)

	monitor.StateChanged(StateIdle, StateOpening)
	monitor.BatchCommitted(0, 4, 1)
	assert.Empty(t, buf.String(), "below the interval")

	monitor.BatchCommitted(1, 3, 2)
	assert.Contains(t, buf.String(), "Progress: 10 documents in 2 batches (7 inserted, 3 updated)")
}

func TestProgressMonitor_Finished(t *testing.T) {
	var buf bytes.Buffer
	monitor := NewProgressMonitor(&buf, 100)

	monitor.StateChanged(StateIdle, StateOpening)
	monitor.BatchCommitted(0, 2, 0)
	monitor.Finished(&Report{Processed: 2}, errBoom)

	out := buf.String()
	assert.Contains(t, out, "Progress: 2 documents in 1 batches")
	assert.Contains(t, out, "stopped: boom")
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
}

func TestProgressMonitor_ResetsOnOpening(t *testing.T) {
	var buf bytes.Buffer
	monitor := NewProgressMonitor(&buf, 0)

	monitor.StateChanged(StateIdle, StateOpening)
	monitor.BatchCommitted(0, 5, 0)
	monitor.StateChanged(StateIdle, StateOpening)
	buf.Reset()
	monitor.BatchCommitted(0, 1, 0)

	assert.Contains(t, buf.String(), "Progress: 1 documents in 1 batches")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "committing", StateCommitting.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateWriting.Terminal())
}
