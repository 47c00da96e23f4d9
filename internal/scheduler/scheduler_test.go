package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidSpec(t *testing.T) {
	_, err := New("every tuesday", func(context.Context) error { return nil }, 0, nil)
	assert.Error(t, err)
}

func TestTriggerSkipsWhileRunning(t *testing.T) {
	release := make(chan struct{})
	var runs atomic.Int32
	s, err := New("0 8 * * *", func(ctx context.Context) error {
		runs.Add(1)
		<-release
		return nil
	}, time.Minute, nil)
	require.NoError(t, err)

	require.NoError(t, s.Trigger())
	require.Eventually(t, func() bool { return s.Status().Running }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, s.Trigger(), ErrBusy)
	assert.ErrorIs(t, s.RunNow(context.Background()), ErrBusy)

	close(release)
	require.Eventually(t, func() bool { return !s.Status().Running && s.Status().Runs == 1 }, time.Second, 5*time.Millisecond)

	st := s.Status()
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, 2, st.Skipped)
	assert.Empty(t, st.LastErr)
}

func TestRunNowRecordsError(t *testing.T) {
	s, err := New("@every 1h", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok, "cycles run under the configured timeout")
		return errors.New("all sources failed")
	}, time.Minute, nil)
	require.NoError(t, err)

	assert.EqualError(t, s.RunNow(context.Background()), "all sources failed")
	assert.Equal(t, "all sources failed", s.Status().LastErr)
}

func TestPanickingCycleIsRecorded(t *testing.T) {
	s, err := New("@every 1h", func(context.Context) error { panic("selector exploded") }, 0, nil)
	require.NoError(t, err)

	require.NoError(t, s.Trigger())
	s.wg.Wait()

	st := s.Status()
	assert.Equal(t, 1, st.Runs)
	assert.False(t, st.Running)
	assert.Contains(t, st.LastErr, "selector exploded")

	err = s.RunNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, 2, s.Status().Runs)
}

func TestStartAndStop(t *testing.T) {
	s, err := New("@every 1h", func(context.Context) error { return nil }, 0, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.Status().NextRun.IsZero())
	s.Stop()
}
