// Package rotate implements the log rotation engine.
//
// The engine processes named log groups. Each group binds a directory
// and a filename pattern to a retention policy: generation count, age
// limit, compression, and a minimum-size trigger. For every matching
// base file the engine runs four stages in order:
//
//  1. Shift: renumber existing generations upward (app.log.1 becomes
//     app.log.2) so the slot for generation 1 is free. Renames only,
//     never deletes.
//  2. Snapshot: copy the live file's bytes into generation 1, then
//     truncate the live file in place. Truncation keeps the inode
//     stable for writers holding an open descriptor.
//  3. Compress: compress plain generations that lack a compressed
//     counterpart, staging the output and unlinking the original only
//     after the artifact is fully written.
//  4. Sweep: delete artifacts older than the age limit or numbered
//     beyond the generation limit.
//
// Every stage is split into a pure planning step and an executing
// step. Planners read an in-memory snapshot of the file's layout and
// emit actions; the executor either applies them to the filesystem or,
// in dry-run mode, only reports them. Applied actions are folded back
// into the snapshot, so later stages plan against the post-action
// layout and a dry run produces the same statistics as a real one.
//
// The filesystem is the sole source of rotation state. Nothing is
// persisted between runs; existing artifact names are re-parsed on
// every invocation.
//
// # Usage
//
//	engine := rotate.NewEngine(afero.NewOsFs(), nil, rotate.EngineConfig{})
//	stats, err := engine.Run(ctx, []rotate.Policy{{
//	    Name:      "nginx",
//	    Directory: "/var/log/nginx",
//	    Pattern:   "*.log",
//	    Compress:  true,
//	}})
//	if err != nil {
//	    return err
//	}
//	if stats.Errors > 0 {
//	    os.Exit(1)
//	}
package rotate
