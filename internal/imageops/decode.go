package imageops

import (
	"errors"
	"fmt"
	"image"
	"math/bits"
	"os"

	"github.com/disintegration/imaging"

	"image-compressor-go/internal/sniff"
)

// preferredMaxDim is the longest edge we want a freshly decoded raster
// to have. Larger sources are stride-subsampled down toward it; the
// quality search will most likely shrink them further anyway.
const preferredMaxDim = 4096

// maxSourcePixels rejects rasters whose full decode would not fit in a
// sane working set (512 megapixels is 2 GiB of NRGBA). The JVM original
// caught OutOfMemoryError after the fact; Go cannot, so the guard runs
// up front on the probed dimensions.
const maxSourcePixels = 512 << 20

// Sentinel errors that classify why a file was not decoded. The
// orchestrator maps them onto skip/failure outcomes.
var (
	ErrBelowSizeThreshold      = errors.New("file size below compression threshold")
	ErrBelowDimensionThreshold = errors.New("image dimensions below compression threshold")
	ErrUnsupportedFormat       = errors.New("unsupported image format")
	ErrImageTooLarge           = errors.New("image too large to decode")
)

// Decoded bundles a decoded raster with the format it was sniffed as.
type Decoded struct {
	Image  *image.NRGBA
	Format sniff.Format
}

// Decode opens the image at path and decodes it with a bounded working
// set. Files at or below minSizeBytes, and images whose probed
// dimensions do not exceed minWidth/minHeight, are skipped via the
// sentinel errors above. Sources whose longest edge exceeds 4096px are
// subsampled by a power-of-two stride after decoding.
func Decode(path string, minWidth, minHeight int, minSizeBytes, fileSize int64) (*Decoded, error) {
	if fileSize <= minSizeBytes {
		return nil, ErrBelowSizeThreshold
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	format := sniff.DetectReader(f)
	if format == sniff.Unknown {
		return nil, ErrUnsupportedFormat
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("rewind %s: %w", path, err)
	}

	// Probe dimensions without materializing pixels.
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, ErrUnsupportedFormat
	}
	if cfg.Width <= minWidth || cfg.Height <= minHeight {
		return nil, ErrBelowDimensionThreshold
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxSourcePixels {
		return nil, ErrImageTooLarge
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("rewind %s: %w", path, err)
	}

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	raster := imaging.Clone(img)
	if factor := SubsampleFactor(cfg.Width, cfg.Height); factor > 1 {
		raster = subsample(raster, factor)
	}

	return &Decoded{Image: raster, Format: format}, nil
}

// SubsampleFactor returns the stride used to thin out very large
// sources: floor(maxDim/4096) rounded down to a power of two, or 1 when
// the image already fits.
func SubsampleFactor(width, height int) int {
	maxDim := width
	if height > maxDim {
		maxDim = height
	}
	if maxDim <= preferredMaxDim {
		return 1
	}
	factor := maxDim / preferredMaxDim
	// Highest set bit: powers of two play nicer with JPEG block layout.
	return 1 << (bits.Len(uint(factor)) - 1)
}

// subsample keeps every factor-th pixel per axis.
func subsample(src *image.NRGBA, factor int) *image.NRGBA {
	bounds := src.Bounds()
	newWidth := bounds.Dx() / factor
	newHeight := bounds.Dy() / factor
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, newWidth, newHeight))
	for y := 0; y < newHeight; y++ {
		srcRow := y * factor * src.Stride
		dstRow := y * dst.Stride
		for x := 0; x < newWidth; x++ {
			srcOff := srcRow + x*factor*4
			dstOff := dstRow + x*4
			copy(dst.Pix[dstOff:dstOff+4], src.Pix[srcOff:srcOff+4])
		}
	}
	return dst
}
