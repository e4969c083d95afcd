package capture

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeDataURI(t *testing.T, uri string) image.Image {
	t.Helper()
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestStillPNGScaleTiers(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 10, 6))

	for _, scale := range []int{ScaleStandard, ScaleRetina, ScalePrint} {
		uri, err := StillPNG(frame, scale)
		require.NoError(t, err)

		out := decodeDataURI(t, uri)
		assert.Equal(t, 10*scale, out.Bounds().Dx())
		assert.Equal(t, 6*scale, out.Bounds().Dy())
	}
}

func TestStillPNGRejectsInvalidScale(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))

	_, err := StillPNG(frame, 0)
	assert.Error(t, err)
	_, err = StillPNG(frame, 4)
	assert.Error(t, err)
	_, err = StillPNG(frame, -1)
	assert.Error(t, err)
}

func TestStillPNGFlattensTransparencyToWhite(t *testing.T) {
	// Fully transparent frame; the export must come out white, not black.
	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))

	uri, err := StillPNG(frame, 1)
	require.NoError(t, err)

	out := decodeDataURI(t, uri)
	r, g, b, _ := out.At(2, 2).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0xffff), b)
}

func TestStillPNGPreservesOpaquePixels(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			frame.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	uri, err := StillPNG(frame, 1)
	require.NoError(t, err)

	out := decodeDataURI(t, uri)
	r, g, b, _ := out.At(2, 2).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), b)
}

func TestDecodePNGRoundTrip(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 3, 3))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, frame))

	img, err := DecodePNG(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())
}

func TestDecodePNGRejectsGarbage(t *testing.T) {
	_, err := DecodePNG([]byte("not a png"))
	assert.Error(t, err)
}

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		name     string
		cap      Capability
		wantName string
		wantMime string
	}{
		{"mp4 capable", Capability{MP4: true, WebM: true}, "hybrid", "video/mp4"},
		{"webm only", Capability{WebM: true}, "hybrid", "video/webm"},
		{"no streaming codec", Capability{}, "frame-sequence", "video/webm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Select(tt.cap, nil, nil)
			assert.Equal(t, tt.wantName, s.Name())
			assert.Equal(t, tt.wantMime, s.MimeType())
		})
	}
}
