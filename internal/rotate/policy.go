package rotate

import (
	"time"

	"github.com/logtrim-io/logtrim/internal/compress"
)

// Policy holds the rotation parameters for one log group. The caller
// owns it; the engine only reads it.
type Policy struct {
	// Name identifies the group in logs and summaries.
	Name string

	// Directory holds the group's log files.
	Directory string

	// Pattern selects base files within Directory. Glob metacharacters
	// expand non-recursively; a literal name matches exactly one file.
	Pattern string

	// MaxAgeDays is the artifact age limit for the retention sweep.
	// Zero deletes every existing artifact; the configuration layer is
	// responsible for defaulting absent values.
	MaxAgeDays int

	// MaxGenerations bounds generation numbers; the sweep removes
	// artifacts numbered above it.
	MaxGenerations int

	// Compress enables compressing plain generations after rotation.
	Compress bool

	// Codec names the compression codec used for new artifacts.
	Codec string

	// MinSizeMB skips rotation for base files smaller than this many
	// megabytes. Zero rotates unconditionally.
	MinSizeMB float64
}

// withDefaults returns a copy with structurally invalid fields repaired.
// Semantic defaults (the 30-day age limit, compression on) belong to
// the configuration layer; an explicit MaxAgeDays of zero is meaningful
// and passes through untouched.
func (p Policy) withDefaults() Policy {
	if p.Pattern == "" {
		p.Pattern = "*"
	}
	if p.MaxGenerations < 1 {
		p.MaxGenerations = 5
	}
	if p.MaxAgeDays < 0 {
		p.MaxAgeDays = 0
	}
	if p.MinSizeMB < 0 {
		p.MinSizeMB = 0
	}
	if p.Codec == "" {
		p.Codec = compress.Default().Name()
	}
	return p
}

// minSizeBytes returns the rotation trigger threshold in bytes.
func (p Policy) minSizeBytes() int64 {
	return int64(p.MinSizeMB * 1024 * 1024)
}

// maxAge returns the artifact age limit as a duration.
func (p Policy) maxAge() time.Duration {
	return time.Duration(p.MaxAgeDays) * 24 * time.Hour
}
