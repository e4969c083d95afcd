package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// Scale tiers for still exports. 1x is screen resolution; 2x and 3x are the
// quality tiers used for social cards.
const (
	ScaleStandard = 1
	ScaleRetina   = 2
	ScalePrint    = 3
)

// DecodePNG parses raw PNG bytes into an image.
func DecodePNG(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("capture: decode frame: %w", err)
	}
	return img, nil
}

// StillPNG rasterizes one rendered frame into a PNG data URI: the frame is
// composited onto a forced white background (transparent previews would
// otherwise export with black fill), scaled by the requested tier, and
// base64-encoded.
func StillPNG(frame image.Image, scale int) (string, error) {
	if scale < ScaleStandard || scale > ScalePrint {
		return "", fmt.Errorf("capture: scale must be 1, 2 or 3, got %d", scale)
	}

	src := frame.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, src.Dx()*scale, src.Dy()*scale))

	// White background first, then the frame over it.
	xdraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, xdraw.Src)
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, src, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return "", fmt.Errorf("capture: encode still: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
