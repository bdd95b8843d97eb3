// Package metrics provides Prometheus metrics for observability.
//
// This package exposes metrics for rotation runs including:
//   - Files rotated, compressed, and deleted (counters)
//   - Per-group and per-file error counter
//   - Net bytes freed by deletions and compression (signed gauge)
//   - Run duration and completion timestamp
//   - Dry-run marker distinguishing simulated from real runs
//
// logtrim is a short-lived scheduled job, not a daemon, so metrics are
// published by writing the registry to a textfile consumed by the
// node_exporter textfile collector rather than by serving a scrape
// endpoint.
//
// Usage:
//
//	// Create and register metrics
//	rotationMetrics := metrics.NewRotationMetrics()
//
//	// Wire into the engine
//	engine := rotate.NewEngine(fs, rotationMetrics, rotate.EngineConfig{})
//	stats, err := engine.Run(ctx, groups)
//
//	// Publish for node_exporter
//	err = metrics.WriteTextfile("/var/lib/node_exporter/logtrim.prom", nil)
package metrics
