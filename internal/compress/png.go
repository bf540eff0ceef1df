package compress

import (
	"image"
	"os"

	"github.com/disintegration/imaging"

	"image-compressor-go/internal/imageops"
)

// CompressPNG fits img inside the MinWidth x MinHeight box, preserving
// aspect ratio, and writes the result as PNG. PNG has no byte-size
// target; resolution is the only lever. Returns false without writing
// anything when the image already fits — "already within bounds" is
// "nothing to do", not an error.
func (p *Processor) CompressPNG(img *image.NRGBA, outPath string) (bool, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	targetWidth, targetHeight := p.params.MinWidth, p.params.MinHeight

	if width <= targetWidth && height <= targetHeight {
		p.logger.Debugf("%s: %dx%d already within %dx%d, nothing to do",
			outPath, width, height, targetWidth, targetHeight)
		return false, nil
	}

	widthRatio := float64(targetWidth) / float64(width)
	heightRatio := float64(targetHeight) / float64(height)
	scale := widthRatio
	if heightRatio < scale {
		scale = heightRatio
	}

	p.logger.Debugf("%s: %dx%d exceeds %dx%d, scaling by %.2f",
		outPath, width, height, targetWidth, targetHeight, scale)

	resized := imageops.Resize(img, scale)

	f, err := os.Create(outPath)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if err := imaging.Encode(f, resized, imaging.PNG); err != nil {
		return false, err
	}
	return true, nil
}
