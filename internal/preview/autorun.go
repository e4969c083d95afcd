package preview

import (
	"sync"
	"sync/atomic"
	"time"
)

// DebounceInterval is the quiet period after the last edit before a rebuild
// fires. Fixed by contract, not configurable through the API surface.
const DebounceInterval = 1000 * time.Millisecond

// minLoadingWindow keeps the loading flag up for a perceptible moment so fast
// rebuilds don't flicker.
const minLoadingWindow = 150 * time.Millisecond

// Runner states.
const (
	StateIdle int32 = iota
	StatePending
	StateRebuilding
)

// Runner drives the rebuild cycle for one preview session:
// Idle -> (edit) -> PendingRebuild -> (debounce elapses) -> Rebuilding -> Idle.
// Edits while pending reset the timer; an explicit Run bypasses it. Rebuilds
// are strictly sequential since the loop is a single goroutine.
type Runner struct {
	debounce   time.Duration
	minLoading time.Duration
	rebuild    func()

	edits  chan struct{}
	runNow chan struct{}
	done   chan struct{}

	state    atomic.Int32
	rebuilds atomic.Int64

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewRunner creates a runner that invokes rebuild after each debounce cycle.
func NewRunner(rebuild func()) *Runner {
	return newRunner(rebuild, DebounceInterval, minLoadingWindow)
}

func newRunner(rebuild func(), debounce, minLoading time.Duration) *Runner {
	return &Runner{
		debounce:   debounce,
		minLoading: minLoading,
		rebuild:    rebuild,
		edits:      make(chan struct{}, 1),
		runNow:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Start launches the scheduler goroutine.
func (r *Runner) Start() {
	r.wg.Add(1)
	go r.loop()
}

// Edit signals that a source buffer changed. Rapid edits coalesce into a
// single rebuild after the quiet period.
func (r *Runner) Edit() {
	select {
	case r.edits <- struct{}{}:
	case <-r.done:
	default: // an edit signal is already queued
	}
}

// Run requests an immediate rebuild, superseding any pending debounce timer.
func (r *Runner) Run() {
	select {
	case r.runNow <- struct{}{}:
	case <-r.done:
	default: // a manual run is already queued
	}
}

// Loading reports whether a rebuild is in flight (including the minimum
// perceptible loading window).
func (r *Runner) Loading() bool {
	return r.state.Load() == StateRebuilding
}

// Pending reports whether an edit is waiting out the debounce timer.
func (r *Runner) Pending() bool {
	return r.state.Load() == StatePending
}

// Rebuilds returns the number of completed rebuild cycles.
func (r *Runner) Rebuilds() int64 {
	return r.rebuilds.Load()
}

// Stop shuts the scheduler down and waits for the loop to exit.
func (r *Runner) Stop() {
	r.closeOnce.Do(func() { close(r.done) })
	r.wg.Wait()
}

func (r *Runner) loop() {
	defer r.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	stopTimer := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer, timerC = nil, nil
	}

	for {
		select {
		case <-r.done:
			stopTimer()
			return

		case <-r.edits:
			r.state.Store(StatePending)
			if timer == nil {
				timer = time.NewTimer(r.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(r.debounce)
			}

		case <-r.runNow:
			stopTimer()
			r.doRebuild()

		case <-timerC:
			timer, timerC = nil, nil
			r.doRebuild()
		}
	}
}

func (r *Runner) doRebuild() {
	r.state.Store(StateRebuilding)
	start := time.Now()
	r.rebuild()

	// Hold the loading flag up to the minimum window.
	if rem := r.minLoading - time.Since(start); rem > 0 {
		t := time.NewTimer(rem)
		select {
		case <-t.C:
		case <-r.done:
			t.Stop()
		}
	}

	r.rebuilds.Add(1)
	r.state.Store(StateIdle)
}
