package weather

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_LastCallWins(t *testing.T) {
	d := NewDebouncer()

	var (
		mu    sync.Mutex
		calls []int
	)

	for i := 1; i <= 10; i++ {
		i := i
		d.Schedule(func() {
			mu.Lock()
			calls = append(calls, i)
			mu.Unlock()
		}, 100*time.Millisecond)
		time.Sleep(time.Millisecond)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) > 0
	}, time.Second, 5*time.Millisecond)

	// give any stray timers a chance to misbehave
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{10}, calls)
}

func TestDebouncer_SeparateWindowsBothRun(t *testing.T) {
	d := NewDebouncer()
	var n atomic.Int32

	d.Schedule(func() { n.Add(1) }, 10*time.Millisecond)
	require.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, 5*time.Millisecond)

	d.Schedule(func() { n.Add(1) }, 10*time.Millisecond)
	require.Eventually(t, func() bool { return n.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer()
	var n atomic.Int32

	d.Schedule(func() { n.Add(1) }, 20*time.Millisecond)
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), n.Load())
}
