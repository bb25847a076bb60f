package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	jm := NewJobManager()
	job := jm.Create()

	assert.Same(t, job, jm.Get(job.ID))
	assert.Same(t, job, jm.GetActive())
	assert.Nil(t, jm.Get("missing"))

	job.SetTotal(4)
	job.Update(1, true, false, "first")
	job.Update(2, false, true, "second")

	data := job.ToJSON()
	assert.Equal(t, 50, data["progress"])
	assert.Equal(t, 1, data["flagged"])
	assert.Equal(t, 1, data["alert_failed"])
	assert.Equal(t, "second", data["current"])
	assert.NotContains(t, data, "completed_at")

	job.SetAlertFailed(2)
	assert.Equal(t, 2, job.ToJSON()["alert_failed"])

	job.Complete()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Nil(t, jm.GetActive())
	assert.Contains(t, job.ToJSON(), "completed_at")
}

func TestJobCancel(t *testing.T) {
	jm := NewJobManager()
	job := jm.Create()

	job.Cancel()
	assert.True(t, job.IsCancelled())
	assert.Error(t, job.Context().Err())

	// A cancelled job stays cancelled
	job.Complete()
	job.StopWithError("late failure")
	assert.Equal(t, JobStatusCancelled, job.Status)
	assert.Empty(t, job.Error)
}

func TestJobStopWithError(t *testing.T) {
	job := NewJobManager().Create()
	job.StopWithError("failed to connect")

	assert.Equal(t, JobStatusError, job.Status)
	assert.Equal(t, "failed to connect", job.Error)
	assert.Error(t, job.Context().Err())
}

func TestJobCleanup(t *testing.T) {
	jm := NewJobManager()
	done := jm.Create()
	done.Complete()
	running := jm.Create()

	jm.Cleanup(-time.Second)
	assert.Nil(t, jm.Get(done.ID))
	require.NotNil(t, jm.Get(running.ID))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	rl.Stop()
	rl.Stop()
}
