package wizard

import (
	"sync"
	"time"
)

// DefaultAutosaveDelay is the quiet window before an auto-save runs.
const DefaultAutosaveDelay = 2 * time.Second

// Timer is the handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs the most recently scheduled function once the quiet window
// passes without another Schedule. At most one function is pending at a time
// and runs never overlap.
type Debouncer struct {
	clock Clock
	delay time.Duration

	// run is held while a function executes.
	run sync.Mutex

	mu    sync.Mutex
	timer Timer
	fn    func()
	seq   uint64
}

func NewDebouncer(clock Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = realClock{}
	}
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Schedule cancels any pending run and restarts the window with fn.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.fn = fn
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(seq) })
}

func (d *Debouncer) fire(seq uint64) {
	d.run.Lock()
	defer d.run.Unlock()
	d.mu.Lock()
	// a timer that lost the race with Schedule/Flush/Cancel must not run
	if seq != d.seq || d.fn == nil {
		d.mu.Unlock()
		return
	}
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()
	fn()
}

// Flush runs the pending function now, on the caller's goroutine. If a timer
// already started a run, Flush returns only after that run finishes.
func (d *Debouncer) Flush() {
	fn := d.take()
	d.run.Lock()
	defer d.run.Unlock()
	if fn != nil {
		fn()
	}
}

// Cancel drops the pending function without running it.
func (d *Debouncer) Cancel() {
	d.take()
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}

func (d *Debouncer) take() func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	fn := d.fn
	d.fn = nil
	return fn
}
