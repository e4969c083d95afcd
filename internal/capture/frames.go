package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FrameSequence is the last-resort strategy: collect discrete stills at a
// fixed interval, then synthesize a video afterwards by redrawing the captured
// frames at the same fps.
type FrameSequence struct {
	enc   *Encoder
	store *Store
}

// NewFrameSequence creates the collect-then-synthesize strategy.
func NewFrameSequence(enc *Encoder, store *Store) *FrameSequence {
	return &FrameSequence{enc: enc, store: store}
}

func (f *FrameSequence) Name() string { return "frame-sequence" }

func (f *FrameSequence) MimeType() string { return "video/webm" }

// collect gathers frames at the interval derived from the target fps until
// the source closes, the context ends, or the max duration elapses. A frame
// that errors is skipped; collection never aborts on a single bad frame.
func (f *FrameSequence) collect(ctx context.Context, src FrameSource, opts RecordOptions) []image.Image {
	interval := time.Second / time.Duration(opts.FPS)
	deadline := time.NewTimer(opts.MaxDuration)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	var frames []image.Image
	for {
		select {
		case <-ctx.Done():
			return frames
		case <-deadline.C:
			return frames
		case <-tick.C:
			img, err := src.Frame(ctx)
			if errors.Is(err, ErrSourceClosed) {
				return frames
			}
			if err != nil {
				log.Printf("frame sequence: frame skipped: %v", err)
				continue
			}
			frames = append(frames, img)
		}
	}
}

// Record implements Strategy.
func (f *FrameSequence) Record(ctx context.Context, src FrameSource, opts RecordOptions) (*Artifact, error) {
	opts = opts.withDefaults()

	frames := f.collect(ctx, src, opts)
	if len(frames) == 0 {
		return nil, fmt.Errorf("capture: recording produced no frames")
	}

	workDir, err := os.MkdirTemp(f.store.Dir(), "frames-*")
	if err != nil {
		return nil, fmt.Errorf("capture: frame workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	written := 0
	for _, img := range frames {
		path := filepath.Join(workDir, fmt.Sprintf("frame%05d.png", written))
		file, err := os.Create(path)
		if err != nil {
			log.Printf("frame sequence: frame file skipped: %v", err)
			continue
		}
		if err := png.Encode(file, img); err != nil {
			file.Close()
			os.Remove(path)
			log.Printf("frame sequence: frame encode skipped: %v", err)
			continue
		}
		file.Close()
		written++
	}
	if written == 0 {
		return nil, fmt.Errorf("capture: no frames survived encoding")
	}

	id := uuid.New()
	outPath := filepath.Join(f.store.Dir(), id.String()+".webm")
	if err := f.enc.EncodeDir(ctx, workDir, opts.FPS, f.MimeType(), outPath); err != nil {
		return nil, err
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return nil, fmt.Errorf("capture: stat artifact: %w", err)
	}

	a := &Artifact{
		ID:        id,
		SessionID: opts.SessionID,
		Kind:      "video",
		MimeType:  f.MimeType(),
		Path:      outPath,
		URL:       "/artifacts/" + id.String(),
		Size:      info.Size(),
		Frames:    written,
		CreatedAt: time.Now(),
	}
	f.store.Put(a)
	return a, nil
}
