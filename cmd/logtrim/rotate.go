package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/logtrim-io/logtrim/internal/config"
	"github.com/logtrim-io/logtrim/internal/logging"
	"github.com/logtrim-io/logtrim/internal/metrics"
	"github.com/logtrim-io/logtrim/internal/rotate"
)

func runRotate(args []string) {
	fs := flag.NewFlagSet("rotate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	dryRun := fs.Bool("dry-run", false, "Report what would change without touching any file")
	verbose := fs.Bool("verbose", false, "Log at debug level")
	exampleConfig := fs.Bool("example-config", false, "Print an example configuration and exit")

	fs.Usage = func() {
		fmt.Println(`Usage: logtrim rotate [options]

Rotate, compress and expire log files per the configuration.

Every configured group is visited once: base files matching the group
pattern are shifted through numbered generations, snapshotted into a
fresh generation 1, optionally compressed, and generations beyond the
age or count limits are deleted. The exit code is 0 when the run
completed without errors and 1 otherwise.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *exampleConfig {
		fmt.Print(config.SampleYAML())
		return
	}

	// Load configuration
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrNoGroups) {
			fmt.Fprintln(os.Stderr, "no log groups configured; nothing to do")
		} else {
			fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		}
		os.Exit(1)
	}

	// Set up logger
	level := cfg.Observability.LogLevel
	if *verbose {
		level = "debug"
	}
	logger := logging.Configure(level, cfg.Observability.LogFormat).
		WithRunID(uuid.New().String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLoggerCtx(ctx, logger)

	// Each invocation runs once, so the metrics live in their own
	// registry instead of the process-wide default.
	reg := prometheus.NewRegistry()
	m := metrics.NewRotationMetricsWithRegistry(reg)

	engine := rotate.NewEngine(nil, m, rotate.EngineConfig{
		DryRun:        *dryRun,
		LockGroups:    cfg.Lock.Enabled,
		LockTimeoutMs: cfg.Lock.TimeoutMs,
	})

	stats, err := engine.Run(ctx, groupPolicies(cfg))
	if err != nil {
		logger.Errorf("run failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	// A dry run writes nothing, the textfile included.
	if path := cfg.Observability.MetricsTextfile; path != "" && !*dryRun {
		if err := metrics.WriteTextfile(path, reg); err != nil {
			logger.Warnf("metrics textfile write failed", map[string]any{
				"path":  path,
				"error": err.Error(),
			})
		}
	}

	printRunSummary(os.Stdout, stats)
	if stats.Errors > 0 {
		os.Exit(1)
	}
}

// groupPolicies flattens the configured groups into engine policies,
// ordered by group name so runs are deterministic.
func groupPolicies(cfg *config.Config) []rotate.Policy {
	names := make([]string, 0, len(cfg.Groups))
	for name := range cfg.Groups {
		names = append(names, name)
	}
	sort.Strings(names)

	policies := make([]rotate.Policy, 0, len(names))
	for _, name := range names {
		g := cfg.Groups[name]
		p := rotate.Policy{
			Name:           name,
			Directory:      g.Directory,
			Pattern:        g.Pattern,
			MaxGenerations: g.MaxGenerations,
			Codec:          g.Codec,
			MinSizeMB:      g.MinSizeMB,
		}
		if g.MaxAgeDays != nil {
			p.MaxAgeDays = *g.MaxAgeDays
		}
		if g.Compress != nil {
			p.Compress = *g.Compress
		}
		policies = append(policies, p)
	}
	return policies
}

func printRunSummary(w io.Writer, stats *rotate.RunStats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if stats.DryRun {
		fmt.Fprintln(tw, "Dry run:\tno files were changed")
	}
	fmt.Fprintf(tw, "Groups processed:\t%d\n", stats.GroupsProcessed)
	fmt.Fprintf(tw, "Files rotated:\t%d\n", stats.Rotated)
	fmt.Fprintf(tw, "Files compressed:\t%d\n", stats.Compressed)
	fmt.Fprintf(tw, "Files deleted:\t%d\n", stats.Deleted)
	fmt.Fprintf(tw, "Space freed:\t%s\n", formatBytesFreed(stats.BytesFreed))
	fmt.Fprintf(tw, "Errors:\t%d\n", stats.Errors)
	fmt.Fprintf(tw, "Duration:\t%s\n", stats.Duration.Round(time.Millisecond))
	tw.Flush()
}

// formatBytesFreed renders a byte delta. Compressing incompressible
// input can free a negative number of bytes.
func formatBytesFreed(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}
