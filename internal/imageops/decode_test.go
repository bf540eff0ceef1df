package imageops

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-compressor-go/internal/sniff"
)

func TestSubsampleFactor(t *testing.T) {
	tests := []struct {
		w, h, want int
	}{
		{640, 480, 1},
		{4096, 4096, 1},
		{5000, 3000, 1},   // floor(5000/4096) = 1
		{8192, 100, 2},    // exactly 2x
		{10000, 2000, 2},  // floor = 2
		{12288, 100, 2},   // floor = 3, round down to power of two
		{16384, 16384, 4}, // exactly 4x
		{20000, 100, 4},   // floor = 4
		{100, 40000, 8},   // height drives the factor
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SubsampleFactor(tt.w, tt.h), "dims %dx%d", tt.w, tt.h)
	}
}

func TestDecodeSkipsBelowSizeThreshold(t *testing.T) {
	path := writeTempJPEG(t, 200, 200)
	info, err := os.Stat(path)
	require.NoError(t, err)

	_, err = Decode(path, 10, 10, info.Size(), info.Size())
	assert.ErrorIs(t, err, ErrBelowSizeThreshold)
}

func TestDecodeSkipsBelowDimensionThreshold(t *testing.T) {
	path := writeTempJPEG(t, 200, 200)
	info, err := os.Stat(path)
	require.NoError(t, err)

	// width equal to the threshold does not exceed it
	_, err = Decode(path, 200, 10, 0, info.Size())
	assert.ErrorIs(t, err, ErrBelowDimensionThreshold)

	_, err = Decode(path, 10, 500, 0, info.Size())
	assert.ErrorIs(t, err, ErrBelowDimensionThreshold)
}

func TestDecodeRejectsUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jpg")
	require.NoError(t, os.WriteFile(path, []byte("this is not an image at all"), 0644))

	_, err := Decode(path, 1, 1, 0, 27)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeJPEG(t *testing.T) {
	path := writeTempJPEG(t, 300, 200)
	info, err := os.Stat(path)
	require.NoError(t, err)

	decoded, err := Decode(path, 100, 100, 0, info.Size())
	require.NoError(t, err)
	assert.Equal(t, sniff.JPEG, decoded.Format)
	assert.Equal(t, 300, decoded.Image.Bounds().Dx())
	assert.Equal(t, 200, decoded.Image.Bounds().Dy())
}

func TestDecodePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, gradient(400, 300)))
	require.NoError(t, f.Close())
	info, err := os.Stat(path)
	require.NoError(t, err)

	decoded, err := Decode(path, 100, 100, 0, info.Size())
	require.NoError(t, err)
	assert.Equal(t, sniff.PNG, decoded.Format)
	assert.Equal(t, 400, decoded.Image.Bounds().Dx())
}

func TestSubsampleHalvesDimensions(t *testing.T) {
	src := gradient(1000, 600)
	out := subsample(src, 2)
	assert.Equal(t, 500, out.Bounds().Dx())
	assert.Equal(t, 300, out.Bounds().Dy())

	// Pixel (x, y) of the output is pixel (2x, 2y) of the source.
	assert.Equal(t, src.NRGBAAt(100, 100), out.NRGBAAt(50, 50))
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := y*img.Stride + x*4
			img.Pix[off] = uint8(x * 255 / w)
			img.Pix[off+1] = uint8(y * 255 / h)
			img.Pix[off+2] = uint8((x + y) % 256)
			img.Pix[off+3] = 0xff
		}
	}
	return img
}

func writeTempJPEG(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "img.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, gradient(w, h), &jpeg.Options{Quality: 90}))
	return path
}
