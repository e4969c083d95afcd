package capture

import (
	"context"
	"log"
)

// Hybrid prefers the streaming strategy and degrades to the frame-sequence
// fallback when the stream fails mid-recording. The fallback can only replay
// frames the source still has, so a degraded recording may be shorter.
type Hybrid struct {
	primary  Strategy
	fallback Strategy
}

// NewHybrid wraps a preferred strategy with a fallback.
func NewHybrid(primary, fallback Strategy) *Hybrid {
	return &Hybrid{primary: primary, fallback: fallback}
}

func (h *Hybrid) Name() string { return "hybrid" }

// MimeType reports the preferred tier's container; a degraded recording
// carries the fallback's mime type on its artifact instead.
func (h *Hybrid) MimeType() string { return h.primary.MimeType() }

// Record implements Strategy.
func (h *Hybrid) Record(ctx context.Context, src FrameSource, opts RecordOptions) (*Artifact, error) {
	a, err := h.primary.Record(ctx, src, opts)
	if err == nil {
		return a, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	log.Printf("hybrid capture: %s failed (%v), falling back to %s", h.primary.Name(), err, h.fallback.Name())
	return h.fallback.Record(ctx, src, opts)
}
