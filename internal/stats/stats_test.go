package stats

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordUpload(t *testing.T) {
	s := New()
	s.RecordUpload(1, 100, 2*time.Second, true)
	s.RecordUpload(1, 300, 4*time.Second, true)
	s.RecordUpload(2, 0, time.Second, false)

	snap := s.Snapshot()
	assert.EqualValues(t, 2, snap.Uploads)
	assert.EqualValues(t, 1, snap.Failed)
	assert.EqualValues(t, 400, snap.TotalBytes)
	assert.Equal(t, 2, snap.Users)
	assert.Equal(t, 3*time.Second, snap.AvgDuration)
	assert.False(t, snap.LastUpload.IsZero())
}

func TestSnapshotEmpty(t *testing.T) {
	snap := New().Snapshot()
	assert.Zero(t, snap.Uploads)
	assert.Zero(t, snap.AvgDuration)
}

func TestCollectSystemInfo(t *testing.T) {
	info := CollectSystemInfo(context.Background(), t.TempDir())
	assert.Equal(t, os.Getpid(), info.ProcessPID)
	assert.Positive(t, info.CPUCores)
	assert.NotEmpty(t, info.GoVersion)
}
