// Package cache holds the learned-parameter cache: a concurrent
// in-memory map keyed by coarse image similarity buckets, backed by a
// SQLite store that is loaded once at batch start and flushed once at
// batch end.
package cache

import "image"

const (
	// dimBucketSize groups images into 100px wide/tall buckets.
	dimBucketSize = 100
	// sizeBucketSize groups files into 100KB buckets.
	sizeBucketSize = 102400
)

// SimilarityKey is a coarse equivalence class over (width, height, file
// size). Images in the same bucket are assumed to compress similarly.
type SimilarityKey struct {
	WidthBucket  int
	HeightBucket int
	SizeBucket   int64
}

// LearnedParams is a (quality, scale) pair that previously satisfied a
// target byte size for some image in a given bucket. Values are only
// ever created from a successful compression and replaced whole.
type LearnedParams struct {
	Quality float64
	Scale   float64
}

// NewKey derives the bucket key from a decoded image and the original
// file size in bytes.
func NewKey(img image.Image, fileSize int64) SimilarityKey {
	bounds := img.Bounds()
	return SimilarityKey{
		WidthBucket:  bounds.Dx() / dimBucketSize,
		HeightBucket: bounds.Dy() / dimBucketSize,
		SizeBucket:   fileSize / sizeBucketSize,
	}
}
