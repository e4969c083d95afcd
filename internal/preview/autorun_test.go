package preview

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForRebuilds(t *testing.T, r *Runner, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.Rebuilds() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d rebuilds, got %d", want, r.Rebuilds())
}

func TestRunnerCoalescesRapidEdits(t *testing.T) {
	var calls atomic.Int64
	r := newRunner(func() { calls.Add(1) }, 50*time.Millisecond, 0)
	r.Start()
	defer r.Stop()

	// A burst of keystrokes well inside the quiet period.
	for i := 0; i < 10; i++ {
		r.Edit()
		time.Sleep(2 * time.Millisecond)
	}

	waitForRebuilds(t, r, 1)
	// Let any stray timer fire.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), calls.Load(), "10 rapid edits must produce exactly one rebuild")
}

func TestRunnerEditAfterQuietPeriodRebuildsAgain(t *testing.T) {
	var calls atomic.Int64
	r := newRunner(func() { calls.Add(1) }, 20*time.Millisecond, 0)
	r.Start()
	defer r.Stop()

	r.Edit()
	waitForRebuilds(t, r, 1)

	r.Edit()
	waitForRebuilds(t, r, 2)
	assert.Equal(t, int64(2), calls.Load())
}

func TestRunnerManualRunBypassesDebounce(t *testing.T) {
	var calls atomic.Int64
	r := newRunner(func() { calls.Add(1) }, time.Hour, 0)
	r.Start()
	defer r.Stop()

	r.Edit() // pending behind an hour-long debounce
	r.Run()

	waitForRebuilds(t, r, 1)
	assert.Equal(t, int64(1), calls.Load())
}

func TestRunnerLoadingWindow(t *testing.T) {
	release := make(chan struct{})
	r := newRunner(func() { <-release }, 0, 50*time.Millisecond)
	r.Start()
	defer r.Stop()

	assert.False(t, r.Loading())
	r.Run()

	// Rebuild is blocked on the release channel, so loading must be up.
	require.Eventually(t, r.Loading, time.Second, 5*time.Millisecond)
	close(release)

	// Loading drops once the minimum window has passed.
	require.Eventually(t, func() bool { return !r.Loading() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), r.Rebuilds())
}

func TestRunnerPendingState(t *testing.T) {
	r := newRunner(func() {}, time.Hour, 0)
	r.Start()
	defer r.Stop()

	assert.False(t, r.Pending())
	r.Edit()
	require.Eventually(t, r.Pending, time.Second, 5*time.Millisecond)
}

func TestRunnerStopIsIdempotent(t *testing.T) {
	r := newRunner(func() {}, 10*time.Millisecond, 0)
	r.Start()
	r.Stop()
	r.Stop()

	// Signals after stop must not panic.
	r.Edit()
	r.Run()
}
