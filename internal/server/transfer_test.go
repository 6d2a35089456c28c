package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferLifecycle(t *testing.T) {
	tracker := NewTransferTracker(time.Hour)

	id := tracker.Add(Transfer{URL: "https://youtube.com/watch?v=abc12345678", Format: "mp4"}, nil)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, tracker.Active())

	tracker.Progress(id, 2048)
	tr := tracker.Get(id)
	require.NotNil(t, tr)
	assert.Equal(t, TransferStreaming, tr.Status)
	assert.EqualValues(t, 2048, tr.BytesSent)

	assert.False(t, tracker.Remove(id), "streaming transfers cannot be removed")

	tracker.Finish(id, TransferCompleted, "")
	assert.Equal(t, TransferCompleted, tracker.Get(id).Status)
	assert.Zero(t, tracker.Active())
	assert.False(t, tracker.Cancel(id), "finished transfers cannot be cancelled")
	assert.True(t, tracker.Remove(id))
	assert.Nil(t, tracker.Get(id))
}

func TestTransferCancelStaysCancelled(t *testing.T) {
	tracker := NewTransferTracker(time.Hour)

	calls := 0
	id := tracker.Add(Transfer{}, func() { calls++ })

	assert.True(t, tracker.Cancel(id))
	assert.Equal(t, 1, calls)

	// The handler reports the broken copy afterwards.
	tracker.Finish(id, TransferAborted, "")
	assert.Equal(t, TransferCancelled, tracker.Get(id).Status)
}

func TestTransferCleanup(t *testing.T) {
	tracker := NewTransferTracker(time.Hour)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	old := tracker.Add(Transfer{}, nil)
	tracker.Finish(old, TransferFailed, "boom")
	running := tracker.Add(Transfer{}, nil)

	now = now.Add(2 * time.Hour)
	recent := tracker.Add(Transfer{}, nil)
	tracker.Finish(recent, TransferCompleted, "")

	assert.Equal(t, 1, tracker.cleanupOld())
	assert.Nil(t, tracker.Get(old))
	assert.NotNil(t, tracker.Get(running), "streaming transfers are never purged")
	assert.NotNil(t, tracker.Get(recent))
}

func TestTransferAllNewestFirst(t *testing.T) {
	tracker := NewTransferTracker(time.Hour)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		tracker.now = func() time.Time { return at }
		ids = append(ids, tracker.Add(Transfer{}, nil))
	}

	all := tracker.All()
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)
}
