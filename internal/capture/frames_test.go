package capture

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// scriptedSource replays a fixed sequence of frame results.
type scriptedSource struct {
	steps []func() (image.Image, error)
	i     int
}

func (s *scriptedSource) Frame(ctx context.Context) (image.Image, error) {
	if s.i >= len(s.steps) {
		return nil, ErrSourceClosed
	}
	step := s.steps[s.i]
	s.i++
	return step()
}

func frameStep() func() (image.Image, error) {
	return func() (image.Image, error) { return testFrame(), nil }
}

func errStep() func() (image.Image, error) {
	return func() (image.Image, error) { return nil, errors.New("render glitch") }
}

func TestCollectUntilSourceClosed(t *testing.T) {
	src := &scriptedSource{steps: []func() (image.Image, error){
		frameStep(), frameStep(), frameStep(),
	}}
	f := NewFrameSequence(nil, nil)

	frames := f.collect(context.Background(), src, RecordOptions{FPS: 100, MaxDuration: time.Second})
	assert.Len(t, frames, 3)
}

func TestCollectSkipsBadFrames(t *testing.T) {
	src := &scriptedSource{steps: []func() (image.Image, error){
		frameStep(), errStep(), frameStep(),
	}}
	f := NewFrameSequence(nil, nil)

	frames := f.collect(context.Background(), src, RecordOptions{FPS: 100, MaxDuration: time.Second})
	assert.Len(t, frames, 2, "a single bad frame must not abort collection")
}

func TestCollectStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := NewQueueSource(1)
	f := NewFrameSequence(nil, nil)

	frames := f.collect(ctx, q, RecordOptions{FPS: 100, MaxDuration: time.Second})
	assert.Empty(t, frames)
}

func TestCollectStopsOnMaxDuration(t *testing.T) {
	// A source that always has a frame ready; only the deadline can stop it.
	q := NewQueueSource(1000)
	for i := 0; i < 1000; i++ {
		q.Push(testFrame())
	}
	f := NewFrameSequence(nil, nil)

	start := time.Now()
	frames := f.collect(context.Background(), q, RecordOptions{FPS: 1000, MaxDuration: 50 * time.Millisecond})
	elapsed := time.Since(start)

	assert.NotEmpty(t, frames)
	assert.Less(t, elapsed, time.Second, "collection must stop at the duration cap")
}

func TestRecordOptionsDefaults(t *testing.T) {
	opts := RecordOptions{}.withDefaults()
	assert.Equal(t, DefaultFPS, opts.FPS)
	assert.Equal(t, MaxRecordingDuration, opts.MaxDuration)

	custom := RecordOptions{FPS: 30, MaxDuration: 10 * time.Second}.withDefaults()
	assert.Equal(t, 30, custom.FPS)
	assert.Equal(t, 10*time.Second, custom.MaxDuration)
}

func TestRecordNoFrames(t *testing.T) {
	q := NewQueueSource(1)
	q.CloseSource()

	f := NewFrameSequence(nil, nil)
	_, err := f.Record(context.Background(), q, RecordOptions{SessionID: "s1", FPS: 100, MaxDuration: time.Second})
	assert.Error(t, err, "a recording with no frames is an error")
}
