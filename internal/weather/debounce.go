package weather

import (
	"sync"
	"time"
)

// Debouncer runs only the last scheduled action once input has been quiet for the delay.
type Debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
	seq   uint64
}

func NewDebouncer() *Debouncer {
	return &Debouncer{}
}

// Schedule cancels any pending action and schedules action to run after delay.
func (d *Debouncer) Schedule(action func(), delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		// A timer that fired while a newer Schedule held the lock must not run.
		if seq != d.seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		action()
	})
}

// Cancel drops the pending action, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}
