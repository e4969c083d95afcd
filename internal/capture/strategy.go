package capture

import (
	"context"
	"time"
)

// DefaultFPS is the target frame rate for recordings.
const DefaultFPS = 15

// MaxRecordingDuration bounds a recording that is never manually stopped.
const MaxRecordingDuration = 60 * time.Second

// RecordOptions tunes one recording run.
type RecordOptions struct {
	SessionID   string
	FPS         int
	MaxDuration time.Duration
}

func (o RecordOptions) withDefaults() RecordOptions {
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	if o.MaxDuration <= 0 || o.MaxDuration > MaxRecordingDuration {
		o.MaxDuration = MaxRecordingDuration
	}
	return o
}

// Strategy records a frame stream into a video artifact. One implementation
// exists per capability tier; selection happens once via feature detection,
// not per call.
type Strategy interface {
	Name() string
	MimeType() string
	Record(ctx context.Context, src FrameSource, opts RecordOptions) (*Artifact, error)
}

// Select picks the recording strategy for the detected capability tier and
// wraps it so a streaming failure degrades to the frame-sequence fallback:
//   - MP4-capable encoder: canvas capture straight to MP4
//   - WebM-capable encoder: canvas capture to WEBM (the guaranteed fallback format)
//   - no streaming codec:   frame sequence only
func Select(cap Capability, enc *Encoder, store *Store) Strategy {
	frames := NewFrameSequence(enc, store)
	switch {
	case cap.MP4:
		return NewHybrid(NewCanvasCapture(enc, store, "video/mp4"), frames)
	case cap.WebM:
		return NewHybrid(NewCanvasCapture(enc, store, "video/webm"), frames)
	default:
		return frames
	}
}
