// Package compress implements the per-file compression pipeline: the
// cache-assisted JPEG target-size search, the PNG dimension fit, and
// the orchestrator that classifies every file into exactly one outcome.
package compress

// Params governs skip thresholds and target constraints uniformly for
// every file in a batch run. Values are fixed once the run starts.
type Params struct {
	// Quality is the upper bound of the JPEG quality search, in (0, 1].
	Quality float64
	// MinSizeBytes: files at or below this size are skipped.
	MinSizeBytes int64
	// MinWidth/MinHeight: images whose probed dimensions do not exceed
	// both are skipped. The same values double as the PNG target box.
	MinWidth  int
	MinHeight int
	// TargetMaxSizeBytes is the byte ceiling a written JPEG must meet.
	TargetMaxSizeBytes int64
}
