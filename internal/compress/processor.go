package compress

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"image-compressor-go/internal/cache"
	"image-compressor-go/internal/imageops"
	"image-compressor-go/internal/sniff"
)

// Processor runs the full pipeline for one file: threshold checks,
// decode, format dispatch, and outcome classification. One Processor is
// shared by all workers; it holds no per-file state.
type Processor struct {
	params Params
	logger *logrus.Logger
}

// NewProcessor returns a Processor for the given run parameters.
func NewProcessor(params Params, logger *logrus.Logger) *Processor {
	return &Processor{params: params, logger: logger}
}

// ProcessImage compresses the file at inputPath into outputDir under
// the same basename and classifies the result. Every failure mode maps
// to an outcome; no error and no panic crosses this boundary, so one
// bad file can never take down the batch.
func (p *Processor) ProcessImage(inputPath, outputDir string, pc *cache.ParamCache) (report Report) {
	log := p.logger.WithField("file", inputPath)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Panic while processing: %v", r)
			report = Report{Outcome: FailedUnknown, OriginalSize: report.OriginalSize}
		}
	}()

	info, err := os.Stat(inputPath)
	if err != nil {
		log.Warn("Source file missing or unreadable, skipping")
		return Report{Outcome: SkippedNotFound}
	}
	if info.IsDir() {
		log.Warn("Source path is a directory, skipping")
		return Report{Outcome: SkippedNotFound}
	}
	originalSize := info.Size()

	decoded, err := imageops.Decode(inputPath,
		p.params.MinWidth, p.params.MinHeight, p.params.MinSizeBytes, originalSize)
	if err != nil {
		return p.classifyDecodeError(log, err, originalSize)
	}

	outPath := filepath.Join(outputDir, filepath.Base(inputPath))

	var ok bool
	switch decoded.Format {
	case sniff.JPEG:
		ok, err = p.CompressJPEG(decoded.Image, originalSize, outPath, pc)
	case sniff.PNG:
		ok, err = p.CompressPNG(decoded.Image, outPath)
	default:
		log.Warnf("Unsupported format: %s", decoded.Format)
		return Report{Outcome: FailedUnsupportedFormat, OriginalSize: originalSize}
	}

	if err != nil {
		log.WithError(err).Warn("I/O error during compression")
		os.Remove(outPath)
		return Report{Outcome: FailedIOError, OriginalSize: originalSize}
	}
	if !ok {
		// Remove anything a partial attempt may have left behind so the
		// output directory never holds truncated images.
		os.Remove(outPath)
		return Report{Outcome: FailedCompression, OriginalSize: originalSize}
	}

	outInfo, err := os.Stat(outPath)
	if err != nil {
		log.WithError(err).Warn("Cannot stat compressed output")
		return Report{Outcome: FailedIOError, OriginalSize: originalSize}
	}
	compressedSize := outInfo.Size()

	ratio := 100.0 * float64(originalSize-compressedSize) / float64(originalSize)
	log.Infof("Compressed %s -> %s (saved %.1f%%)",
		formatBytes(originalSize), formatBytes(compressedSize), ratio)

	return Report{
		Outcome:        CompressedSuccess,
		OriginalSize:   originalSize,
		CompressedSize: compressedSize,
	}
}

func (p *Processor) classifyDecodeError(log *logrus.Entry, err error, originalSize int64) Report {
	switch {
	case errors.Is(err, imageops.ErrBelowSizeThreshold):
		log.Debugf("Skipping: file size %s under threshold %s",
			formatBytes(originalSize), formatBytes(p.params.MinSizeBytes))
		return Report{Outcome: SkippedConditionNotMet, OriginalSize: originalSize, CompressedSize: originalSize}
	case errors.Is(err, imageops.ErrBelowDimensionThreshold):
		log.Debugf("Skipping: dimensions under %dx%d threshold", p.params.MinWidth, p.params.MinHeight)
		return Report{Outcome: SkippedConditionNotMet, OriginalSize: originalSize, CompressedSize: originalSize}
	case errors.Is(err, imageops.ErrUnsupportedFormat):
		log.Warn("No decoder for this format")
		return Report{Outcome: FailedUnsupportedFormat, OriginalSize: originalSize}
	case errors.Is(err, imageops.ErrImageTooLarge):
		log.Error("Image too large to decode within memory bounds")
		return Report{Outcome: FailedOutOfMemory, OriginalSize: originalSize}
	default:
		log.WithError(err).Warn("I/O error while decoding")
		return Report{Outcome: FailedIOError, OriginalSize: originalSize}
	}
}
