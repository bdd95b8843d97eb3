package health

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Overall and per-section classification values. UNKNOWN marks a
// section whose source could not be read; it never affects the overall
// status.
const (
	StatusOK       = "OK"
	StatusWarning  = "WARNING"
	StatusCritical = "CRITICAL"
	StatusUnknown  = "UNKNOWN"
)

// Report is one point-in-time health snapshot. Issues drive the
// CRITICAL status, warnings the WARNING status; with neither the
// report is OK.
type Report struct {
	Timestamp time.Time       `json:"timestamp"`
	Hostname  string          `json:"hostname"`
	Platform  PlatformInfo    `json:"platform"`
	Uptime    string          `json:"uptime,omitempty"`
	CPU       CPUHealth       `json:"cpu"`
	Memory    MemoryHealth    `json:"memory"`
	Disk      []DiskHealth    `json:"disk"`
	Load      LoadHealth      `json:"load"`
	Services  []ServiceHealth `json:"services"`
	Processes ProcessHealth   `json:"processes"`
	Network   NetworkHealth   `json:"network"`
	Status    string          `json:"status"`
	Issues    []string        `json:"issues"`
	Warnings  []string        `json:"warnings"`
}

// PlatformInfo identifies the kernel and architecture.
type PlatformInfo struct {
	System  string `json:"system"`
	Release string `json:"release"`
	Version string `json:"version"`
	Machine string `json:"machine"`
}

// CPUHealth reports core count and usage measured between two samples.
// UsagePercent is nil when the samples were indistinguishable.
type CPUHealth struct {
	Cores        int      `json:"cores"`
	UsagePercent *float64 `json:"usage_percent"`
	Status       string   `json:"status"`
}

// MemoryHealth reports physical and swap memory in megabytes.
type MemoryHealth struct {
	TotalMB      uint64  `json:"total_mb"`
	UsedMB       uint64  `json:"used_mb"`
	FreeMB       uint64  `json:"free_mb"`
	AvailableMB  uint64  `json:"available_mb"`
	UsagePercent float64 `json:"usage_percent"`
	SwapTotalMB  uint64  `json:"swap_total_mb"`
	SwapUsedMB   uint64  `json:"swap_used_mb"`
	SwapPercent  float64 `json:"swap_percent"`
	Status       string  `json:"status"`
}

// DiskHealth reports usage for one mounted filesystem.
type DiskHealth struct {
	Mountpoint   string  `json:"mountpoint"`
	Device       string  `json:"device"`
	FSType       string  `json:"fstype"`
	TotalGB      float64 `json:"total_gb"`
	UsedGB       float64 `json:"used_gb"`
	FreeGB       float64 `json:"free_gb"`
	AvailableGB  float64 `json:"available_gb"`
	UsagePercent float64 `json:"usage_percent"`
	Status       string  `json:"status"`
}

// LoadHealth reports load averages and the one-minute load per core.
type LoadHealth struct {
	Load1   float64 `json:"load_1min"`
	Load5   float64 `json:"load_5min"`
	Load15  float64 `json:"load_15min"`
	Cores   int     `json:"cpu_cores"`
	PerCore float64 `json:"load_per_core"`
	Status  string  `json:"status"`
}

// ServiceHealth is the systemd state of one probed unit.
type ServiceHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ProcessHealth counts processes by state.
type ProcessHealth struct {
	Total    int    `json:"total"`
	Running  int    `json:"running"`
	Sleeping int    `json:"sleeping"`
	Zombie   int    `json:"zombie"`
	Stopped  int    `json:"stopped"`
	Status   string `json:"status"`
}

// InterfaceHealth reports one network interface, loopback excluded.
type InterfaceHealth struct {
	Name     string  `json:"name"`
	State    string  `json:"state"`
	RxMB     float64 `json:"rx_mb"`
	TxMB     float64 `json:"tx_mb"`
	RxErrors uint64  `json:"rx_errors"`
	TxErrors uint64  `json:"tx_errors"`
}

// NetworkHealth groups the per-interface reports.
type NetworkHealth struct {
	Interfaces []InterfaceHealth `json:"interfaces"`
	Status     string            `json:"status"`
}

func newReport() *Report {
	return &Report{
		Status:   StatusOK,
		Disk:     []DiskHealth{},
		Services: []ServiceHealth{},
		Network:  NetworkHealth{Interfaces: []InterfaceHealth{}},
		Issues:   []string{},
		Warnings: []string{},
	}
}

func (r *Report) addIssue(format string, args ...any) {
	r.Issues = append(r.Issues, fmt.Sprintf(format, args...))
}

func (r *Report) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) finalize() {
	switch {
	case len(r.Issues) > 0:
		r.Status = StatusCritical
	case len(r.Warnings) > 0:
		r.Status = StatusWarning
	default:
		r.Status = StatusOK
	}
}

// ExitCode maps the overall status to the process exit code: 0 OK,
// 1 warnings, 2 critical issues.
func (r *Report) ExitCode() int {
	switch r.Status {
	case StatusCritical:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

// RenderJSON returns the report as indented JSON.
func (r *Report) RenderJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Render returns the report as a plain-text block for terminals.
func (r *Report) Render() string {
	var b strings.Builder
	rule := strings.Repeat("=", 70)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "SYSTEM HEALTH CHECK")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Timestamp: %s\n", r.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Hostname:  %s\n", r.Hostname)
	fmt.Fprintf(&b, "Status:    %s\n\n", r.Status)

	fmt.Fprintln(&b, "Platform:")
	fmt.Fprintf(&b, "  System:  %s %s\n", r.Platform.System, r.Platform.Release)
	fmt.Fprintf(&b, "  Machine: %s\n", r.Platform.Machine)
	if r.Uptime != "" {
		fmt.Fprintf(&b, "  Uptime:  %s\n", r.Uptime)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "CPU: %s\n", r.CPU.Status)
	fmt.Fprintf(&b, "  Cores: %d\n", r.CPU.Cores)
	if r.CPU.UsagePercent != nil {
		fmt.Fprintf(&b, "  Usage: %.2f%%\n", *r.CPU.UsagePercent)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Memory: %s\n", r.Memory.Status)
	if r.Memory.TotalMB > 0 {
		fmt.Fprintf(&b, "  Total:     %d MB\n", r.Memory.TotalMB)
		fmt.Fprintf(&b, "  Used:      %d MB\n", r.Memory.UsedMB)
		fmt.Fprintf(&b, "  Available: %d MB\n", r.Memory.AvailableMB)
		fmt.Fprintf(&b, "  Usage:     %.2f%%\n", r.Memory.UsagePercent)
		if r.Memory.SwapTotalMB > 0 {
			fmt.Fprintf(&b, "  Swap:      %d/%d MB (%.2f%%)\n",
				r.Memory.SwapUsedMB, r.Memory.SwapTotalMB, r.Memory.SwapPercent)
		}
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Load Average: %s\n", r.Load.Status)
	if r.Load.Status != StatusUnknown {
		fmt.Fprintf(&b, "  1min:  %.2f\n", r.Load.Load1)
		fmt.Fprintf(&b, "  5min:  %.2f\n", r.Load.Load5)
		fmt.Fprintf(&b, "  15min: %.2f\n", r.Load.Load15)
		if r.Load.Cores > 0 {
			fmt.Fprintf(&b, "  Per core: %.2f\n", r.Load.PerCore)
		}
	}
	b.WriteString("\n")

	fmt.Fprintln(&b, "Disk Usage:")
	for _, d := range r.Disk {
		fmt.Fprintf(&b, "  %s (%s, %s): %s\n", d.Mountpoint, d.Device, d.FSType, d.Status)
		fmt.Fprintf(&b, "    Total: %.2f GB\n", d.TotalGB)
		fmt.Fprintf(&b, "    Used:  %.2f GB (%.2f%%)\n", d.UsedGB, d.UsagePercent)
		fmt.Fprintf(&b, "    Free:  %.2f GB\n", d.AvailableGB)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Processes: %s\n", r.Processes.Status)
	fmt.Fprintf(&b, "  Total:    %d\n", r.Processes.Total)
	fmt.Fprintf(&b, "  Running:  %d\n", r.Processes.Running)
	fmt.Fprintf(&b, "  Sleeping: %d\n", r.Processes.Sleeping)
	if r.Processes.Zombie > 0 {
		fmt.Fprintf(&b, "  Zombie:   %d ⚠\n", r.Processes.Zombie)
	}
	b.WriteString("\n")

	if len(r.Services) > 0 {
		fmt.Fprintln(&b, "Services:")
		for _, s := range r.Services {
			mark := "✗"
			if s.Status == "active" || s.Status == "running" {
				mark = "✓"
			}
			fmt.Fprintf(&b, "  %s %-20s %s\n", mark, s.Name, s.Status)
		}
		b.WriteString("\n")
	}

	if len(r.Network.Interfaces) > 0 {
		fmt.Fprintln(&b, "Network Interfaces:")
		for _, iface := range r.Network.Interfaces {
			mark := "✗"
			if iface.State == "up" {
				mark = "✓"
			}
			fmt.Fprintf(&b, "  %s %-15s %s\n", mark, iface.Name, iface.State)
			fmt.Fprintf(&b, "     RX: %.2f MB, TX: %.2f MB\n", iface.RxMB, iface.TxMB)
			if iface.RxErrors > 0 || iface.TxErrors > 0 {
				fmt.Fprintf(&b, "     Errors - RX: %d, TX: %d\n", iface.RxErrors, iface.TxErrors)
			}
		}
		b.WriteString("\n")
	}

	if len(r.Issues) > 0 {
		fmt.Fprintln(&b, "CRITICAL ISSUES:")
		for _, issue := range r.Issues {
			fmt.Fprintf(&b, "  ✗ %s\n", issue)
		}
		b.WriteString("\n")
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(&b, "WARNINGS:")
		for _, warning := range r.Warnings {
			fmt.Fprintf(&b, "  ⚠ %s\n", warning)
		}
		b.WriteString("\n")
	}

	fmt.Fprintln(&b, rule)
	return b.String()
}

// classify buckets a usage percentage against the two thresholds.
func classify(value float64, warn, crit int) string {
	switch {
	case value >= float64(crit):
		return StatusCritical
	case value >= float64(warn):
		return StatusWarning
	default:
		return StatusOK
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
