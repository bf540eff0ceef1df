// Package statistics aggregates per-file compression reports into the
// run-level counters and the final summary.
package statistics

import (
	"fmt"
	"sync/atomic"
	"time"

	"image-compressor-go/internal/compress"
)

// Statistics contains all counters for one batch run. Counters are
// updated atomically by many workers; they are eventually consistent
// with "all tasks completed", not with submission order.
type Statistics struct {
	TotalFiles           int64
	TotalOriginalBytes   int64
	TotalCompressedBytes int64

	// Success-only byte totals; savings are computed from these so that
	// skipped files (which count their size on both sides) cannot
	// dilute or inflate the percentage.
	successOriginalBytes   int64
	successCompressedBytes int64

	outcomes [compress.NumOutcomes]int64

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// NewStatistics returns a Statistics with the clock started.
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// IncrementTotalFiles increases the count of submitted files by 1.
func (s *Statistics) IncrementTotalFiles() {
	atomic.AddInt64(&s.TotalFiles, 1)
}

// Record accumulates one per-file report.
func (s *Statistics) Record(report compress.Report) {
	atomic.AddInt64(&s.outcomes[report.Outcome], 1)
	atomic.AddInt64(&s.TotalOriginalBytes, report.OriginalSize)
	atomic.AddInt64(&s.TotalCompressedBytes, report.CompressedSize)
	if report.Outcome == compress.CompressedSuccess {
		atomic.AddInt64(&s.successOriginalBytes, report.OriginalSize)
		atomic.AddInt64(&s.successCompressedBytes, report.CompressedSize)
	}
}

// Count returns the number of files that ended with the given outcome.
func (s *Statistics) Count(outcome compress.Outcome) int64 {
	return atomic.LoadInt64(&s.outcomes[outcome])
}

// SuccessCount returns the number of successfully compressed files.
func (s *Statistics) SuccessCount() int64 {
	return s.Count(compress.CompressedSuccess)
}

// SkippedCount returns the number of expected skips.
func (s *Statistics) SkippedCount() int64 {
	return s.Count(compress.SkippedConditionNotMet) + s.Count(compress.SkippedNotFound)
}

// FailedCount returns the number of per-file failures.
func (s *Statistics) FailedCount() int64 {
	return atomic.LoadInt64(&s.TotalFiles) - s.SuccessCount() - s.SkippedCount()
}

// BytesSaved returns the total bytes saved across successful files.
func (s *Statistics) BytesSaved() int64 {
	saved := atomic.LoadInt64(&s.successOriginalBytes) - atomic.LoadInt64(&s.successCompressedBytes)
	if saved < 0 {
		return 0
	}
	return saved
}

// PercentSaved returns the savings as a percentage of the successfully
// compressed files' original bytes.
func (s *Statistics) PercentSaved() float64 {
	original := atomic.LoadInt64(&s.successOriginalBytes)
	if original == 0 {
		return 0
	}
	return 100.0 * float64(s.BytesSaved()) / float64(original)
}

// Finalize stops the clock.
func (s *Statistics) Finalize() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// GetSummary returns a formatted summary of the run.
func (s *Statistics) GetSummary() string {
	total := atomic.LoadInt64(&s.TotalFiles)

	filesPerSecond := 0.0
	if s.Duration.Seconds() > 0 {
		filesPerSecond = float64(total) / s.Duration.Seconds()
	}

	summary := fmt.Sprintf(`Image Compression Summary:

Files:
		Total: %d
		Compressed: %d
		Skipped: %d
		Failed: %d

Outcomes:
`, total, s.SuccessCount(), s.SkippedCount(), s.FailedCount())

	for i := 0; i < compress.NumOutcomes; i++ {
		outcome := compress.Outcome(i)
		if count := s.Count(outcome); count > 0 {
			summary += fmt.Sprintf("		%s: %d\n", outcome, count)
		}
	}

	summary += fmt.Sprintf(`
Bytes:
		Original: %s
		Compressed: %s
		Saved: %s (%.1f%%)

Performance:
		Duration: %v
		Files/Second: %.2f`,
		formatBytes(atomic.LoadInt64(&s.TotalOriginalBytes)),
		formatBytes(atomic.LoadInt64(&s.TotalCompressedBytes)),
		formatBytes(s.BytesSaved()),
		s.PercentSaved(),
		s.Duration,
		filesPerSecond)

	return summary
}

// formatBytes returns a human-readable string for a byte count.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
