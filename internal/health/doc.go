// Package health collects a point-in-time snapshot of host health:
// CPU usage, memory and swap, load averages, disk usage for real
// filesystems, process states, network interfaces, and the systemd
// state of a handful of well-known services.
//
// The collector reads procfs and sysfs directly, so it is Linux-only.
// Every section degrades independently; a source that cannot be read
// marks its section UNKNOWN without failing the whole report. Usage
// percentages are classified against configurable warning and critical
// thresholds, and the report's overall status maps to the process exit
// code: 0 OK, 1 warnings, 2 critical issues.
//
// CPU usage is measured as the busy share of the delta between two
// /proc/stat samples taken a short interval apart, so a Collect call
// blocks for at least Config.SampleDelay.
//
// # Usage
//
//	collector, err := health.NewCollector(health.Config{}, logger)
//	if err != nil {
//		return err
//	}
//	report := collector.Collect(ctx)
//	fmt.Println(report.Render())
//	os.Exit(report.ExitCode())
package health
