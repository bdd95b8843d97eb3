package rotate

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/logtrim-io/logtrim/internal/compress"
	"github.com/logtrim-io/logtrim/internal/lock"
	"github.com/logtrim-io/logtrim/internal/logging"
	"github.com/logtrim-io/logtrim/internal/metrics"
)

// EngineConfig configures a rotation engine.
type EngineConfig struct {
	// DryRun simulates every mutation, leaving the filesystem untouched
	// while producing the statistics a real run would.
	DryRun bool

	// LockGroups acquires an exclusive advisory lock on each group
	// directory before mutating it, so overlapping invocations cannot
	// interleave renames and corrupt generation numbering. Ignored in
	// dry-run mode, which touches nothing, including the lock file.
	LockGroups bool

	// LockTimeoutMs bounds how long the run waits for a group lock.
	// Default: 5000.
	LockTimeoutMs int64
}

// lockFunc acquires a group directory lock and returns its release.
type lockFunc func(ctx context.Context, dir string) (release func() error, err error)

// Engine drives rotation for a set of log groups. Groups are processed
// sequentially, files within a group sequentially, and the stages of
// one file strictly in order. A failure aborts only the unit it
// occurred in; the run always visits every group and returns aggregate
// statistics.
type Engine struct {
	fs      afero.Fs
	metrics *metrics.RotationMetrics
	cfg     EngineConfig
	nowFn   func() time.Time
	acquire lockFunc
}

// NewEngine creates a rotation engine. A nil fsys uses the host
// filesystem; metrics may be nil.
func NewEngine(fsys afero.Fs, m *metrics.RotationMetrics, cfg EngineConfig) *Engine {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if cfg.LockTimeoutMs <= 0 {
		cfg.LockTimeoutMs = 5000
	}
	return &Engine{
		fs:      fsys,
		metrics: m,
		cfg:     cfg,
		nowFn:   time.Now,
		acquire: func(ctx context.Context, dir string) (func() error, error) {
			guard, err := lock.AcquireDir(ctx, dir)
			if err != nil {
				return nil, err
			}
			return guard.Release, nil
		},
	}
}

// Run processes every group in order and returns the aggregated
// statistics. The only failing condition is an empty group list;
// per-group and per-file failures are folded into the statistics and
// never abort the run.
func (e *Engine) Run(ctx context.Context, groups []Policy) (*RunStats, error) {
	if len(groups) == 0 {
		return nil, ErrNoGroups
	}

	log := logging.FromCtx(ctx)
	if e.cfg.DryRun {
		log = log.With(map[string]any{"dryRun": true})
	}

	stats := &RunStats{DryRun: e.cfg.DryRun}
	start := e.nowFn()

	for _, p := range groups {
		e.processGroup(ctx, log, p, stats)
		stats.GroupsProcessed++
		if e.metrics != nil {
			e.metrics.RecordGroupProcessed()
		}
	}

	stats.Duration = e.nowFn().Sub(start)
	if e.metrics != nil {
		e.metrics.RecordRunResult(stats.BytesFreed, stats.Duration, e.nowFn(), e.cfg.DryRun)
	}

	log.Infof("run complete", map[string]any{
		"groups":     stats.GroupsProcessed,
		"rotated":    stats.Rotated,
		"compressed": stats.Compressed,
		"deleted":    stats.Deleted,
		"bytesFreed": stats.BytesFreed,
		"errors":     stats.Errors,
	})
	return stats, nil
}

func (e *Engine) processGroup(ctx context.Context, log *logging.Logger, p Policy, stats *RunStats) {
	p = p.withDefaults()
	log = log.With(map[string]any{"group": p.Name})

	targets, err := findTargets(e.fs, p.Directory, p.Pattern)
	if err != nil {
		if errors.Is(err, ErrDirectoryMissing) {
			log.Infof("directory missing, skipping group", map[string]any{"directory": p.Directory})
			return
		}
		e.fail(log, stats, "group discovery failed", err)
		return
	}

	var codec compress.Codec
	if p.Compress {
		codec, err = compress.ForName(p.Codec)
		if err != nil {
			e.fail(log, stats, "unusable compression codec", err)
			return
		}
	}

	if e.cfg.LockGroups && !e.cfg.DryRun {
		lockCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.LockTimeoutMs)*time.Millisecond)
		release, err := e.acquire(lockCtx, p.Directory)
		cancel()
		if err != nil {
			e.fail(log, stats, "group lock not acquired", err)
			return
		}
		defer func() {
			if err := release(); err != nil {
				log.Warnf("release group lock", map[string]any{"error": err.Error()})
			}
		}()
	}

	log.Debugf("processing group", map[string]any{
		"directory": p.Directory,
		"pattern":   p.Pattern,
		"files":     len(targets),
	})

	for _, target := range targets {
		e.processFile(log, target, p, codec, stats)
	}
}

func (e *Engine) processFile(log *logging.Logger, target string, p Policy, codec compress.Codec, stats *RunStats) {
	log = log.With(map[string]any{"file": target})

	st, err := captureState(e.fs, target)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("file vanished before rotation, skipping")
			return
		}
		e.fail(log, stats, "file inspection failed", err)
		return
	}

	if min := p.minSizeBytes(); min > 0 && st.size < min {
		log.Debugf("below size threshold, skipping", map[string]any{
			"bytes":     st.size,
			"threshold": min,
		})
		return
	}

	x := &executor{fs: e.fs, dry: e.cfg.DryRun, log: log}

	// The first failed action aborts this file; the run moves on to the
	// next candidate. A partial shift is left as-is and reported rather
	// than rolled back.
	run := func(actions []Action) bool {
		for _, a := range actions {
			res, err := x.apply(a)
			if err != nil {
				e.fail(log, stats, "rotation step failed", err)
				return false
			}
			st.apply(a, res.destSize)
			e.record(a, res, stats)
		}
		return true
	}

	if !run(planShift(st, p.MaxGenerations)) {
		return
	}
	if !run(planSnapshot(st)) {
		return
	}
	if p.Compress {
		if !run(planCompress(st, p.MaxGenerations, codec)) {
			return
		}
	}
	run(planSweep(st, p.maxAge(), p.MaxGenerations, e.nowFn()))
}

func (e *Engine) record(a Action, res applyResult, stats *RunStats) {
	stats.BytesFreed += res.bytesFreed
	switch a.Op {
	case OpCopy:
		stats.Rotated++
		if e.metrics != nil {
			e.metrics.RecordFileRotated()
		}
	case OpCompress:
		stats.Compressed++
		if e.metrics != nil {
			e.metrics.RecordFileCompressed()
		}
	case OpDelete:
		stats.Deleted++
		if e.metrics != nil {
			e.metrics.RecordFileDeleted()
		}
	}
}

func (e *Engine) fail(log *logging.Logger, stats *RunStats, msg string, err error) {
	stats.Errors++
	if e.metrics != nil {
		e.metrics.RecordError()
	}
	log.Errorf(msg, map[string]any{"error": err.Error()})
}
