package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) Refresh() bool {
	r.calls.Add(1)
	return true
}

func TestScheduler_RunsRefresh(t *testing.T) {
	r := &countingRefresher{}
	s := New(50*time.Millisecond, r, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_Disabled(t *testing.T) {
	r := &countingRefresher{}
	s := New(0, r, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, r.calls.Load())
}
