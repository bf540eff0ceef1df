package compress

// Outcome is the terminal classification of one file. Outcomes are
// mutually exclusive; every processed path gets exactly one.
type Outcome int

const (
	CompressedSuccess Outcome = iota
	SkippedConditionNotMet
	SkippedNotFound
	FailedCompression
	FailedUnsupportedFormat
	FailedIOError
	FailedOutOfMemory
	FailedUnknown
	numOutcomes // sentinel for counter arrays
)

// NumOutcomes is the number of distinct outcome values.
const NumOutcomes = int(numOutcomes)

func (o Outcome) String() string {
	switch o {
	case CompressedSuccess:
		return "compressed"
	case SkippedConditionNotMet:
		return "skipped (condition not met)"
	case SkippedNotFound:
		return "skipped (not found)"
	case FailedCompression:
		return "failed (target unreachable)"
	case FailedUnsupportedFormat:
		return "failed (unsupported format)"
	case FailedIOError:
		return "failed (io error)"
	case FailedOutOfMemory:
		return "failed (out of memory)"
	default:
		return "failed (unknown)"
	}
}

// IsSkip reports whether the outcome is an expected skip rather than a
// failure. Skips are a correct application of configured thresholds.
func (o Outcome) IsSkip() bool {
	return o == SkippedConditionNotMet || o == SkippedNotFound
}

// Report is the per-file record consumed by the batch aggregator.
type Report struct {
	Outcome        Outcome
	OriginalSize   int64
	CompressedSize int64
}
