package health

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"github.com/logtrim-io/logtrim/internal/logging"
)

// Collection defaults.
const (
	DefaultSysNetRoot  = "/sys/class/net"
	DefaultSampleDelay = 100 * time.Millisecond

	// ServiceProbeTimeout bounds one systemctl invocation.
	ServiceProbeTimeout = 5 * time.Second

	mib = float64(1 << 20)
	gib = float64(1 << 30)
)

// DefaultServices are the units probed by the services check. Units
// systemd does not know about are omitted from the report.
var DefaultServices = []string{
	"ssh", "sshd",
	"cron", "crond",
	"systemd-journald",
	"NetworkManager", "network-manager",
}

// realFilesystems are the mount types worth reporting disk usage for.
// Virtual filesystems (proc, sysfs, tmpfs, overlays) are skipped.
var realFilesystems = map[string]struct{}{
	"ext2": {}, "ext3": {}, "ext4": {},
	"xfs": {}, "btrfs": {}, "zfs": {},
	"ntfs": {}, "vfat": {},
}

// Thresholds holds usage percentages that trip a classification.
type Thresholds struct {
	CPU    int
	Memory int
	Disk   int
}

// Config controls what the collector reads and how it classifies.
// The zero value collects from the live host with the default
// thresholds.
type Config struct {
	// ProcRoot is the procfs mount point. Default: /proc.
	ProcRoot string

	// SysNetRoot is the sysfs directory holding one entry per network
	// interface. Default: /sys/class/net.
	SysNetRoot string

	// Warning and Critical classify cpu/memory/disk usage.
	// Defaults: 80/85/85 warning, 95/95/95 critical.
	Warning  Thresholds
	Critical Thresholds

	// SampleDelay separates the two CPU usage samples. Default: 100ms.
	SampleDelay time.Duration

	// Services are probed with systemctl is-active.
	// Default: DefaultServices.
	Services []string
}

func (c Config) withDefaults() Config {
	if c.ProcRoot == "" {
		c.ProcRoot = procfs.DefaultMountPoint
	}
	if c.SysNetRoot == "" {
		c.SysNetRoot = DefaultSysNetRoot
	}
	if c.Warning.CPU <= 0 {
		c.Warning.CPU = 80
	}
	if c.Warning.Memory <= 0 {
		c.Warning.Memory = 85
	}
	if c.Warning.Disk <= 0 {
		c.Warning.Disk = 85
	}
	if c.Critical.CPU <= 0 {
		c.Critical.CPU = 95
	}
	if c.Critical.Memory <= 0 {
		c.Critical.Memory = 95
	}
	if c.Critical.Disk <= 0 {
		c.Critical.Disk = 95
	}
	if c.SampleDelay <= 0 {
		c.SampleDelay = DefaultSampleDelay
	}
	if c.Services == nil {
		c.Services = DefaultServices
	}
	return c
}

// Collector gathers one health report from procfs, sysfs, and systemd.
// A collector is reusable; every Collect call produces a fresh report.
type Collector struct {
	cfg Config
	fs  procfs.FS
	log *logging.Logger

	// Seams for fixture tests; NewCollector installs the real readers.
	sampleFn func() (procfs.Stat, error)
	mountsFn func() ([]*procfs.MountInfo, error)
	statfsFn func(path string, buf *unix.Statfs_t) error
	unameFn  func(buf *unix.Utsname) error
	probeFn  func(ctx context.Context, service string) (string, bool)
	sleepFn  func(d time.Duration)
	nowFn    func() time.Time
	hostFn   func() (string, error)
}

// NewCollector creates a collector rooted at cfg.ProcRoot. A nil
// logger uses the process default.
func NewCollector(cfg Config, logger *logging.Logger) (*Collector, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	fs, err := procfs.NewFS(cfg.ProcRoot)
	if err != nil {
		return nil, fmt.Errorf("health: open %s: %w", cfg.ProcRoot, err)
	}

	c := &Collector{cfg: cfg, fs: fs, log: logger}
	c.sampleFn = c.fs.Stat
	c.mountsFn = procfs.GetMounts
	c.statfsFn = unix.Statfs
	c.unameFn = unix.Uname
	c.probeFn = probeSystemd
	c.sleepFn = time.Sleep
	c.nowFn = time.Now
	c.hostFn = os.Hostname
	return c, nil
}

// Collect runs every check and returns the report. Sections degrade
// independently: one that cannot be read is marked UNKNOWN while the
// rest of the report still fills in.
func (c *Collector) Collect(ctx context.Context) *Report {
	r := newReport()
	r.Timestamp = c.nowFn()
	if host, err := c.hostFn(); err == nil {
		r.Hostname = host
	}

	first, errFirst := c.sampleFn()
	c.sleepFn(c.cfg.SampleDelay)
	second, errSecond := c.sampleFn()

	c.collectPlatform(r, second, errSecond)
	c.collectCPU(r, first, second, errFirst != nil || errSecond != nil)
	c.collectMemory(r)
	c.collectLoad(r, second, errSecond)
	c.collectDisk(r)
	c.collectProcesses(r)
	c.collectNetwork(r)
	c.collectServices(ctx, r)

	r.finalize()
	return r
}

func (c *Collector) collectPlatform(r *Report, stat procfs.Stat, statErr error) {
	var uts unix.Utsname
	if err := c.unameFn(&uts); err != nil {
		c.log.Debugf("uname failed", map[string]any{"error": err.Error()})
	} else {
		r.Platform = PlatformInfo{
			System:  utsString(uts.Sysname),
			Release: utsString(uts.Release),
			Version: utsString(uts.Version),
			Machine: utsString(uts.Machine),
		}
	}

	if statErr == nil && stat.BootTime > 0 {
		if up := r.Timestamp.Unix() - int64(stat.BootTime); up > 0 {
			r.Uptime = formatUptime(up)
		}
	}
}

func (c *Collector) collectCPU(r *Report, first, second procfs.Stat, sampleFailed bool) {
	if sampleFailed {
		r.CPU.Status = StatusUnknown
		return
	}
	r.CPU.Status = StatusOK
	r.CPU.Cores = len(second.CPU)

	totalDiff := cpuTotal(second.CPUTotal) - cpuTotal(first.CPUTotal)
	idleDiff := second.CPUTotal.Idle - first.CPUTotal.Idle
	if totalDiff <= 0 {
		// Indistinguishable samples; usage stays unknown.
		return
	}
	usage := 100 * (totalDiff - idleDiff) / totalDiff
	rounded := round2(usage)
	r.CPU.UsagePercent = &rounded

	switch classify(usage, c.cfg.Warning.CPU, c.cfg.Critical.CPU) {
	case StatusCritical:
		r.CPU.Status = StatusCritical
		r.addIssue("CPU usage at %.1f%% (critical threshold: %d%%)", usage, c.cfg.Critical.CPU)
	case StatusWarning:
		r.CPU.Status = StatusWarning
		r.addWarning("CPU usage at %.1f%% (warning threshold: %d%%)", usage, c.cfg.Warning.CPU)
	}
}

func (c *Collector) collectMemory(r *Report) {
	mi, err := c.fs.Meminfo()
	if err != nil {
		c.log.Debugf("meminfo read failed", map[string]any{"error": err.Error()})
		r.Memory.Status = StatusUnknown
		return
	}
	r.Memory.Status = StatusOK
	r.Memory.TotalMB = kbToMB(mi.MemTotal)
	r.Memory.FreeMB = kbToMB(mi.MemFree)
	r.Memory.AvailableMB = kbToMB(mi.MemAvailable)
	if r.Memory.TotalMB >= r.Memory.AvailableMB {
		r.Memory.UsedMB = r.Memory.TotalMB - r.Memory.AvailableMB
	}

	if r.Memory.TotalMB > 0 {
		usage := 100 * float64(r.Memory.UsedMB) / float64(r.Memory.TotalMB)
		r.Memory.UsagePercent = round2(usage)
		switch classify(usage, c.cfg.Warning.Memory, c.cfg.Critical.Memory) {
		case StatusCritical:
			r.Memory.Status = StatusCritical
			r.addIssue("Memory usage at %.1f%% (critical threshold: %d%%)", usage, c.cfg.Critical.Memory)
		case StatusWarning:
			r.Memory.Status = StatusWarning
			r.addWarning("Memory usage at %.1f%% (warning threshold: %d%%)", usage, c.cfg.Warning.Memory)
		}
	}

	r.Memory.SwapTotalMB = kbToMB(mi.SwapTotal)
	swapFree := kbToMB(mi.SwapFree)
	if r.Memory.SwapTotalMB >= swapFree {
		r.Memory.SwapUsedMB = r.Memory.SwapTotalMB - swapFree
	}
	if r.Memory.SwapTotalMB > 0 {
		pct := 100 * float64(r.Memory.SwapUsedMB) / float64(r.Memory.SwapTotalMB)
		r.Memory.SwapPercent = round2(pct)
		if pct >= 50 {
			r.addWarning("Swap usage at %.1f%%", pct)
		}
	}
}

func (c *Collector) collectLoad(r *Report, stat procfs.Stat, statErr error) {
	la, err := c.fs.LoadAvg()
	if err != nil {
		c.log.Debugf("loadavg read failed", map[string]any{"error": err.Error()})
		r.Load.Status = StatusUnknown
		return
	}
	r.Load.Status = StatusOK
	r.Load.Load1 = la.Load1
	r.Load.Load5 = la.Load5
	r.Load.Load15 = la.Load15

	if statErr != nil {
		return
	}
	cores := len(stat.CPU)
	r.Load.Cores = cores
	if cores == 0 {
		return
	}
	perCore := la.Load1 / float64(cores)
	r.Load.PerCore = round2(perCore)
	switch {
	case perCore >= 2.0:
		r.Load.Status = StatusCritical
		r.addIssue("Load average %g is high for %d cores (load per core: %.2f)", la.Load1, cores, perCore)
	case perCore >= 1.5:
		r.Load.Status = StatusWarning
		r.addWarning("Load average %g is elevated for %d cores (load per core: %.2f)", la.Load1, cores, perCore)
	}
}

func (c *Collector) collectDisk(r *Report) {
	mounts, err := c.mountsFn()
	if err != nil {
		c.log.Debugf("mount listing failed", map[string]any{"error": err.Error()})
		return
	}
	for _, m := range mounts {
		if _, ok := realFilesystems[m.FSType]; !ok {
			continue
		}
		var buf unix.Statfs_t
		if err := c.statfsFn(m.MountPoint, &buf); err != nil {
			c.log.Debugf("statfs failed", map[string]any{
				"mount": m.MountPoint,
				"error": err.Error(),
			})
			continue
		}

		frsize := uint64(buf.Frsize)
		total := buf.Blocks * frsize
		free := buf.Bfree * frsize
		avail := buf.Bavail * frsize
		used := total - free

		d := DiskHealth{
			Mountpoint:  m.MountPoint,
			Device:      m.Source,
			FSType:      m.FSType,
			TotalGB:     round2(float64(total) / gib),
			UsedGB:      round2(float64(used) / gib),
			FreeGB:      round2(float64(free) / gib),
			AvailableGB: round2(float64(avail) / gib),
			Status:      StatusOK,
		}
		if total > 0 {
			usage := 100 * float64(used) / float64(total)
			d.UsagePercent = round2(usage)
			switch classify(usage, c.cfg.Warning.Disk, c.cfg.Critical.Disk) {
			case StatusCritical:
				d.Status = StatusCritical
				r.addIssue("Disk %s at %.1f%% (critical threshold: %d%%)", m.MountPoint, usage, c.cfg.Critical.Disk)
			case StatusWarning:
				d.Status = StatusWarning
				r.addWarning("Disk %s at %.1f%% (warning threshold: %d%%)", m.MountPoint, usage, c.cfg.Warning.Disk)
			}
		}
		r.Disk = append(r.Disk, d)
	}
}

func (c *Collector) collectProcesses(r *Report) {
	procs, err := c.fs.AllProcs()
	if err != nil {
		c.log.Debugf("process listing failed", map[string]any{"error": err.Error()})
		r.Processes.Status = StatusUnknown
		return
	}
	r.Processes.Status = StatusOK
	for _, p := range procs {
		stat, err := p.Stat()
		if err != nil {
			// Process exited mid-scan.
			continue
		}
		r.Processes.Total++
		switch stat.State {
		case "R":
			r.Processes.Running++
		case "S":
			r.Processes.Sleeping++
		case "Z":
			r.Processes.Zombie++
		case "T":
			r.Processes.Stopped++
		}
	}
	if r.Processes.Zombie > 0 {
		r.addWarning("Found %d zombie process(es)", r.Processes.Zombie)
	}
}

func (c *Collector) collectNetwork(r *Report) {
	dev, err := c.fs.NetDev()
	if err != nil {
		c.log.Debugf("net/dev read failed", map[string]any{"error": err.Error()})
		r.Network.Status = StatusUnknown
		return
	}
	r.Network.Status = StatusOK

	names := make([]string, 0, len(dev))
	for name := range dev {
		if name == "lo" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		line := dev[name]
		state := c.readOperstate(name)
		r.Network.Interfaces = append(r.Network.Interfaces, InterfaceHealth{
			Name:     name,
			State:    state,
			RxMB:     round2(float64(line.RxBytes) / mib),
			TxMB:     round2(float64(line.TxBytes) / mib),
			RxErrors: line.RxErrors,
			TxErrors: line.TxErrors,
		})
		if state == "down" {
			r.addWarning("Network interface %s is down", name)
		}
	}
}

func (c *Collector) readOperstate(iface string) string {
	data, err := os.ReadFile(filepath.Join(c.cfg.SysNetRoot, iface, "operstate"))
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(data))
}

func (c *Collector) collectServices(ctx context.Context, r *Report) {
	for _, name := range c.cfg.Services {
		status, found := c.probeFn(ctx, name)
		if !found {
			continue
		}
		r.Services = append(r.Services, ServiceHealth{Name: name, Status: status})
		if status != "active" && status != "running" {
			r.addWarning("Service %s is %s", name, status)
		}
	}
}

// probeSystemd asks systemd for one unit's state. systemctl reports
// inactive units on stdout with a nonzero exit, which still counts as
// an answer; a probe that cannot run at all (no systemctl, timeout)
// reports not found and the unit is omitted.
func probeSystemd(ctx context.Context, service string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, ServiceProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "systemctl", "is-active", service).Output()
	status := strings.TrimSpace(string(out))
	if status == "" {
		if err != nil {
			return "", false
		}
		return "unknown", true
	}
	return status, true
}

func cpuTotal(s procfs.CPUStat) float64 {
	return s.User + s.Nice + s.System + s.Idle + s.Iowait +
		s.IRQ + s.SoftIRQ + s.Steal + s.Guest + s.GuestNice
}

func kbToMB(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v / 1024
}

func formatUptime(seconds int64) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}

func utsString(b [65]byte) string {
	if i := bytes.IndexByte(b[:], 0); i >= 0 {
		return string(b[:i])
	}
	return string(b[:])
}
