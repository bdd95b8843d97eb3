package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/logtrim-io/logtrim/internal/health"
	"github.com/logtrim-io/logtrim/internal/logging"
)

func runHealth(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output in JSON format")
	procRoot := fs.String("proc", "", "procfs mount point (default /proc)")
	verbose := fs.Bool("verbose", false, "Log at debug level")
	warnCPU := fs.Int("warn-cpu", 0, "CPU usage warning threshold in percent (default 80)")
	warnMemory := fs.Int("warn-memory", 0, "Memory usage warning threshold in percent (default 85)")
	warnDisk := fs.Int("warn-disk", 0, "Disk usage warning threshold in percent (default 85)")
	critCPU := fs.Int("crit-cpu", 0, "CPU usage critical threshold in percent (default 95)")
	critMemory := fs.Int("crit-memory", 0, "Memory usage critical threshold in percent (default 95)")
	critDisk := fs.Int("crit-disk", 0, "Disk usage critical threshold in percent (default 95)")

	fs.Usage = func() {
		fmt.Println(`Usage: logtrim health [options]

Print a host health report.

Reads CPU, memory, disk, load, process, network and service state from
procfs, sysfs and systemd. Nothing on the host is modified. The exit
code is 0 when healthy, 1 with warnings and 2 with critical issues.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	level := "error"
	if *verbose {
		level = "debug"
	}
	logger := logging.Configure(level, "text")

	collector, err := health.NewCollector(health.Config{
		ProcRoot: *procRoot,
		Warning:  health.Thresholds{CPU: *warnCPU, Memory: *warnMemory, Disk: *warnDisk},
		Critical: health.Thresholds{CPU: *critCPU, Memory: *critMemory, Disk: *critDisk},
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report := collector.Collect(ctx)

	if *jsonOutput {
		out, err := report.RenderJSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(out)
	} else {
		fmt.Print(report.Render())
	}

	if code := report.ExitCode(); code != 0 {
		os.Exit(code)
	}
}
