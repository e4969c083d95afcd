package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// CanvasCapture streams frames straight into a running encode, the moral
// equivalent of feeding a canvas's live media stream to a recorder. It is the
// preferred strategy whenever a streaming codec is available.
type CanvasCapture struct {
	enc   *Encoder
	store *Store
	mime  string
}

// NewCanvasCapture creates the streaming strategy targeting the given
// container mime type (video/mp4 or video/webm).
func NewCanvasCapture(enc *Encoder, store *Store, mime string) *CanvasCapture {
	return &CanvasCapture{enc: enc, store: store, mime: mime}
}

func (c *CanvasCapture) Name() string { return "canvas-capture" }

func (c *CanvasCapture) MimeType() string { return c.mime }

// Record pulls frames at the target fps and pipes each one into the encoder
// until the source closes, the context is cancelled, or the max-duration timer
// fires. A failed frame is skipped, never fatal; an in-flight frame always
// finishes before the encoder is told to stop.
func (c *CanvasCapture) Record(ctx context.Context, src FrameSource, opts RecordOptions) (*Artifact, error) {
	opts = opts.withDefaults()

	ext := "webm"
	if c.mime == "video/mp4" {
		ext = "mp4"
	}
	id := uuid.New()
	outPath := filepath.Join(c.store.Dir(), fmt.Sprintf("%s.%s", id, ext))

	w, err := c.enc.StreamEncode(ctx, opts.FPS, c.mime, outPath)
	if err != nil {
		return nil, err
	}

	deadline := time.NewTimer(opts.MaxDuration)
	defer deadline.Stop()
	tick := time.NewTicker(time.Second / time.Duration(opts.FPS))
	defer tick.Stop()

	frames := 0
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-deadline.C:
			break loop
		case <-tick.C:
			img, err := src.Frame(ctx)
			if errors.Is(err, ErrSourceClosed) {
				break loop
			}
			if err != nil {
				log.Printf("canvas capture: frame skipped: %v", err)
				continue
			}
			if err := w.WriteFrame(img); err != nil {
				log.Printf("canvas capture: frame write skipped: %v", err)
				continue
			}
			frames++
		}
	}

	if err := w.Close(); err != nil {
		os.Remove(outPath)
		return nil, err
	}
	if frames == 0 {
		os.Remove(outPath)
		return nil, fmt.Errorf("capture: recording produced no frames")
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return nil, fmt.Errorf("capture: stat artifact: %w", err)
	}

	a := &Artifact{
		ID:        id,
		SessionID: opts.SessionID,
		Kind:      "video",
		MimeType:  c.mime,
		Path:      outPath,
		URL:       "/artifacts/" + id.String(),
		Size:      info.Size(),
		Frames:    frames,
		CreatedAt: time.Now(),
	}
	c.store.Put(a)
	return a, nil
}
