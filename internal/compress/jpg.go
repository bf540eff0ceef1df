package compress

import (
	"bytes"
	"image"
	"math"
	"os"

	"github.com/disintegration/imaging"

	"image-compressor-go/internal/cache"
	"image-compressor-go/internal/imageops"
)

const (
	// scaleStep is the geometric ratio between successive scale levels.
	scaleStep = 0.85
	// scaleFloor ends the search; below ~10% of the source there is
	// nothing left worth keeping.
	scaleFloor = 0.1
	// maxQualityIterations bounds the binary search; 8 halvings of a
	// [0,1] interval already beat the 0.01 precision cutoff.
	maxQualityIterations = 8
	// qualityEpsilon stops the search once the bracket is this narrow.
	qualityEpsilon = 0.01
)

// CompressJPEG writes a JPEG rendition of img at or under
// Params.TargetMaxSizeBytes, searching scale (outer, geometric) and
// quality (inner, binary search) for the best-looking fit. A cache hit
// for the image's similarity bucket is tried first; a success through
// either path records the winning parameters back into the cache.
// Returns false when no scale/quality combination meets the target.
func (p *Processor) CompressJPEG(img *image.NRGBA, originalSize int64, outPath string, pc *cache.ParamCache) (bool, error) {
	key := cache.NewKey(img, originalSize)

	if learned, ok := pc.Get(key); ok {
		hit, err := p.tryLearnedParams(img, learned, outPath)
		if err != nil {
			return false, err
		}
		if hit {
			return true, nil
		}
		// The entry stays: it was valid for some image in this bucket
		// and may be overwritten by a newer success below.
	}

	current := img
	for scale := 1.0; scale > scaleFloor; scale = nextScale(scale) {
		if scale < 1.0 {
			current = imageops.Resize(img, scale)
			p.logger.Debugf("%s: still over target, scaled to %d%%", outPath, int(scale*100))
		}

		quality, err := p.findBestQuality(current, p.params.TargetMaxSizeBytes, p.params.Quality)
		if err != nil {
			return false, err
		}
		if quality > 0 {
			data, err := encodeJPEG(current, quality)
			if err != nil {
				return false, err
			}
			if err := os.WriteFile(outPath, data, 0644); err != nil {
				return false, err
			}

			pc.Put(key, cache.LearnedParams{Quality: quality, Scale: scale})
			p.logger.Debugf("%s: learned new parameters (q=%.3f, s=%.2f)", outPath, quality, scale)
			return true, nil
		}
	}

	p.logger.Warnf("%s: no scale/quality combination meets the size target", outPath)
	return false, nil
}

// tryLearnedParams is the cache fast path: apply the remembered scale
// and quality in one shot and accept the result only if it meets the
// target. A miss is not an error, just a fall-through to full search.
func (p *Processor) tryLearnedParams(img *image.NRGBA, learned cache.LearnedParams, outPath string) (bool, error) {
	candidate := img
	if learned.Scale < 1.0 {
		candidate = imageops.Resize(img, learned.Scale)
	}

	data, err := encodeJPEG(candidate, learned.Quality)
	if err != nil {
		return false, err
	}
	if int64(len(data)) > p.params.TargetMaxSizeBytes {
		p.logger.Debugf("%s: learned parameters overshot target (%d bytes), falling back to full search",
			outPath, len(data))
		return false, nil
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return false, err
	}
	p.logger.Debugf("%s: learned parameters hit target directly (q=%.3f, s=%.2f)",
		outPath, learned.Quality, learned.Scale)
	return true, nil
}

// findBestQuality binary-searches [0, initialQuality] for the highest
// quality whose encoding fits targetBytes, converging on maximum visual
// fidelity under the size bound. Returns -1 when even the lowest tested
// quality is too big.
func (p *Processor) findBestQuality(img *image.NRGBA, targetBytes int64, initialQuality float64) (float64, error) {
	sizeAt := func(quality float64) (int64, error) {
		data, err := encodeJPEG(img, quality)
		if err != nil {
			return 0, err
		}
		return int64(len(data)), nil
	}
	return searchQuality(sizeAt, targetBytes, initialQuality)
}

// searchQuality is the encoder-agnostic core of the binary search, split
// out so tests can drive it with a synthetic size function.
func searchQuality(sizeAt func(quality float64) (int64, error), targetBytes int64, initialQuality float64) (float64, error) {
	low, high := 0.0, initialQuality
	best := -1.0

	for i := 0; i < maxQualityIterations; i++ {
		mid := (low + high) / 2
		if mid < qualityEpsilon {
			break
		}

		size, err := sizeAt(mid)
		if err != nil {
			return -1, err
		}

		if size <= targetBytes {
			// Fits: remember it and look for a higher acceptable quality.
			best = mid
			low = mid
		} else {
			high = mid
		}

		if high-low < qualityEpsilon {
			break
		}
	}
	return best, nil
}

// encodeJPEG renders img to an in-memory JPEG at the given quality
// (0,1]. The imaging encoder takes 1-100.
func encodeJPEG(img image.Image, quality float64) ([]byte, error) {
	q := int(math.Round(quality * 100))
	if q < 1 {
		q = 1
	} else if q > 100 {
		q = 100
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func nextScale(scale float64) float64 {
	if scale == 1.0 {
		return scaleStep
	}
	return scale * scaleStep
}
