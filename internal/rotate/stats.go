package rotate

import "time"

// RunStats accumulates the outcome of one engine invocation. A fresh
// value is populated per run and returned to the caller; nothing is
// carried across runs.
type RunStats struct {
	// GroupsProcessed counts groups visited, including groups skipped
	// because their directory was missing.
	GroupsProcessed int

	// Rotated counts base files snapshotted into a new generation 1.
	Rotated int

	// Compressed counts generation artifacts compressed.
	Compressed int

	// Deleted counts generation artifacts removed by the sweep.
	Deleted int

	// Errors counts per-group and per-file failures.
	Errors int

	// BytesFreed is the net bytes reclaimed. Deletions add the artifact
	// size; compression adds the signed difference between original and
	// compressed sizes, which is negative for incompressible inputs.
	BytesFreed int64

	// Duration is the wall-clock time of the run.
	Duration time.Duration

	// DryRun reports whether mutations were simulated.
	DryRun bool
}
