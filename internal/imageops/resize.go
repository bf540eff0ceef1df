// Package imageops provides the raster-level primitives used by the
// compression strategies: scaling and memory-bounded decoding.
package imageops

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Resize returns a scaled copy of img. scale must be in (0, 1]; the new
// dimensions are max(1, round(d*scale)) per axis. Bilinear filtering is
// used, alpha is preserved (the result is always NRGBA), and the input
// image is not mutated.
func Resize(img image.Image, scale float64) *image.NRGBA {
	bounds := img.Bounds()
	newWidth := int(math.Round(float64(bounds.Dx()) * scale))
	newHeight := int(math.Round(float64(bounds.Dy()) * scale))
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}
	return imaging.Resize(img, newWidth, newHeight, imaging.Linear)
}
