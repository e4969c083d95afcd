package capture

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Capability reports which video codecs the host's encoder toolchain supports.
// Detection runs once at startup; strategy selection keys off the result.
type Capability struct {
	MP4  bool // h264 encoder available
	WebM bool // vp8/vp9 encoder available
}

// Encoder wraps the ffmpeg binary used to synthesize video artifacts.
type Encoder struct {
	bin string
}

// NewEncoder creates an encoder around the given ffmpeg binary path.
func NewEncoder(bin string) *Encoder {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Encoder{bin: bin}
}

// Detect probes the encoder table for usable codecs. A missing or broken
// ffmpeg reports no capability, which pushes strategy selection to the
// frame-sequence fallback.
func (e *Encoder) Detect(ctx context.Context) Capability {
	out, err := exec.CommandContext(ctx, e.bin, "-hide_banner", "-encoders").Output()
	if err != nil {
		return Capability{}
	}
	table := string(out)
	return Capability{
		MP4:  strings.Contains(table, "libx264") || strings.Contains(table, "h264_videotoolbox"),
		WebM: strings.Contains(table, "libvpx"),
	}
}

func codecArgs(mime string) []string {
	if mime == "video/mp4" {
		return []string{"-c:v", "libx264", "-pix_fmt", "yuv420p", "-movflags", "+faststart"}
	}
	return []string{"-c:v", "libvpx", "-b:v", "1M", "-pix_fmt", "yuv420p"}
}

// EncodeDir synthesizes a video from numbered PNG frames in dir, redrawn at
// the given fps.
func (e *Encoder) EncodeDir(ctx context.Context, dir string, fps int, mime, outPath string) error {
	args := []string{
		"-y",
		"-framerate", strconv.Itoa(fps),
		"-i", filepath.Join(dir, "frame%05d.png"),
	}
	args = append(args, codecArgs(mime)...)
	args = append(args, outPath)

	cmd := exec.CommandContext(ctx, e.bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("capture: ffmpeg encode failed: %v: %s", err, out)
	}
	return nil
}

// StreamEncode starts a streaming encode fed PNG frames over stdin. The
// returned writer accepts frames via WriteFrame; Close it, then call wait to
// let ffmpeg flush the container.
func (e *Encoder) StreamEncode(ctx context.Context, fps int, mime, outPath string) (*FrameWriter, error) {
	args := []string{
		"-y",
		"-f", "image2pipe",
		"-framerate", strconv.Itoa(fps),
		"-i", "-",
	}
	args = append(args, codecArgs(mime)...)
	args = append(args, outPath)

	cmd := exec.CommandContext(ctx, e.bin, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("capture: ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("capture: ffmpeg start: %w", err)
	}
	return &FrameWriter{cmd: cmd, stdin: stdin}, nil
}

// FrameWriter feeds a live PNG frame stream into a running encode.
type FrameWriter struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// WriteFrame encodes one frame as PNG onto the encoder's stdin.
func (w *FrameWriter) WriteFrame(img image.Image) error {
	return png.Encode(w.stdin, img)
}

// Close ends the frame stream and waits for the encoder to finish the
// container write.
func (w *FrameWriter) Close() error {
	if err := w.stdin.Close(); err != nil {
		w.cmd.Wait()
		return fmt.Errorf("capture: close encoder stream: %w", err)
	}
	if err := w.cmd.Wait(); err != nil {
		return fmt.Errorf("capture: ffmpeg exited: %w", err)
	}
	return nil
}
