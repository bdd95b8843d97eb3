package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/logtrim-io/logtrim/internal/logging"
)

// fixtureNow pairs with the btime in procStatFixture for a 1-day uptime.
var fixtureNow = time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)

const procStatFixture = `cpu  1000 50 300 8000 200 0 50 0 0 0
cpu0 500 25 150 4000 100 0 25 0 0 0
cpu1 500 25 150 4000 100 0 25 0 0 0
ctxt 38014093
btime 1787392800
processes 26442
procs_running 2
procs_blocked 0
`

const netDevFixture = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo: 1234567     890    0    0    0     0          0         0  1234567     890    0    0    0     0       0          0
  eth0: 10485760    5000    3    0    0     0          0         0  5242880    4000    1    0    0     0       0          0
`

const netDevTwoInterfaces = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo: 1234567     890    0    0    0     0          0         0  1234567     890    0    0    0     0       0          0
  eth0: 10485760    5000    0    0    0     0          0         0  5242880    4000    0    0    0     0       0          0
  eth1:  524288     100    0    0    0     0          0         0   262144      80    0    0    0     0       0          0
`

func meminfoFixture(totalKB, availKB, swapTotalKB, swapFreeKB uint64) string {
	return fmt.Sprintf(`MemTotal:       %8d kB
MemFree:          512000 kB
MemAvailable:   %8d kB
Buffers:          304256 kB
Cached:          1048576 kB
SwapTotal:      %8d kB
SwapFree:       %8d kB
`, totalKB, availKB, swapTotalKB, swapFreeKB)
}

func procStatLine(pid int, comm, state string) string {
	return fmt.Sprintf("%d (%s) %s 1 %d %d 0 -1 4194304 100 0 0 0 10 5 0 0 20 0 1 0 "+
		"1000 10000000 500 18446744073709551615 1 1 0 0 0 0 0 0 0 0 0 0 17 1 0 0 0 0 0 0 0 0 0 0 0 0 0\n",
		pid, comm, state, pid, pid)
}

func healthyProcFiles() map[string]string {
	return map[string]string{
		"stat":     procStatFixture,
		"meminfo":  meminfoFixture(8192000, 2048000, 2097152, 2097152),
		"loadavg":  "0.52 0.48 0.45 2/345 12345\n",
		"net/dev":  netDevFixture,
		"101/stat": procStatLine(101, "nginx", "S"),
		"102/stat": procStatLine(102, "logtrim", "R"),
		"103/stat": procStatLine(103, "sshd", "S"),
	}
}

func quietLogger() *logging.Logger {
	return logging.New(logging.Config{
		Level:  logging.LevelError,
		Output: io.Discard,
	})
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// newFixtureCollector builds a collector over fixture trees with every
// host-touching seam stubbed out. Tests override individual seams.
func newFixtureCollector(t *testing.T, procFiles, sysFiles map[string]string) *Collector {
	t.Helper()

	procRoot := filepath.Join(t.TempDir(), "proc")
	require.NoError(t, os.MkdirAll(procRoot, 0o755))
	writeFiles(t, procRoot, procFiles)

	sysRoot := filepath.Join(t.TempDir(), "net")
	require.NoError(t, os.MkdirAll(sysRoot, 0o755))
	writeFiles(t, sysRoot, sysFiles)

	c, err := NewCollector(Config{ProcRoot: procRoot, SysNetRoot: sysRoot}, quietLogger())
	require.NoError(t, err)

	c.sleepFn = func(time.Duration) {}
	c.nowFn = func() time.Time { return fixtureNow }
	c.hostFn = func() (string, error) { return "testhost", nil }
	c.unameFn = func(buf *unix.Utsname) error {
		copy(buf.Sysname[:], "Linux")
		copy(buf.Release[:], "6.8.0-test")
		copy(buf.Version[:], "#1 SMP")
		copy(buf.Machine[:], "x86_64")
		return nil
	}
	c.mountsFn = func() ([]*procfs.MountInfo, error) { return nil, nil }
	c.probeFn = func(ctx context.Context, service string) (string, bool) { return "", false }
	return c
}

func cpuSample(user, idle float64) procfs.Stat {
	return procfs.Stat{
		CPUTotal: procfs.CPUStat{User: user, Idle: idle},
		CPU:      map[int64]procfs.CPUStat{0: {}, 1: {}},
		BootTime: 1787392800,
	}
}

func scriptSamples(c *Collector, first, second procfs.Stat) {
	calls := 0
	c.sampleFn = func() (procfs.Stat, error) {
		calls++
		if calls == 1 {
			return first, nil
		}
		return second, nil
	}
}

func fillStatfs(buf *unix.Statfs_t, blocks, bfree, bavail uint64) {
	buf.Blocks = blocks
	buf.Bfree = bfree
	buf.Bavail = bavail
	buf.Frsize = 4096
}

func TestCollectHealthyReport(t *testing.T) {
	c := newFixtureCollector(t, healthyProcFiles(), map[string]string{
		"eth0/operstate": "up\n",
	})

	r := c.Collect(context.Background())

	require.Equal(t, StatusOK, r.Status)
	require.Equal(t, 0, r.ExitCode())
	require.Empty(t, r.Issues)
	require.Empty(t, r.Warnings)

	require.Equal(t, "testhost", r.Hostname)
	require.Equal(t, "Linux", r.Platform.System)
	require.Equal(t, "6.8.0-test", r.Platform.Release)
	require.Equal(t, "x86_64", r.Platform.Machine)
	require.Equal(t, "1d 0h 0m", r.Uptime)

	require.Equal(t, StatusOK, r.CPU.Status)
	require.Equal(t, 2, r.CPU.Cores)
	// Both samples came from the same fixture file.
	require.Nil(t, r.CPU.UsagePercent)

	require.Equal(t, StatusOK, r.Memory.Status)
	require.Equal(t, uint64(8000), r.Memory.TotalMB)
	require.Equal(t, uint64(500), r.Memory.FreeMB)
	require.Equal(t, uint64(2000), r.Memory.AvailableMB)
	require.Equal(t, uint64(6000), r.Memory.UsedMB)
	require.InDelta(t, 75.0, r.Memory.UsagePercent, 0.01)
	require.Equal(t, uint64(2048), r.Memory.SwapTotalMB)
	require.Equal(t, uint64(0), r.Memory.SwapUsedMB)

	require.Equal(t, StatusOK, r.Load.Status)
	require.InDelta(t, 0.52, r.Load.Load1, 0.001)
	require.InDelta(t, 0.45, r.Load.Load15, 0.001)
	require.Equal(t, 2, r.Load.Cores)
	require.InDelta(t, 0.26, r.Load.PerCore, 0.001)

	require.Equal(t, StatusOK, r.Processes.Status)
	require.Equal(t, 3, r.Processes.Total)
	require.Equal(t, 1, r.Processes.Running)
	require.Equal(t, 2, r.Processes.Sleeping)
	require.Equal(t, 0, r.Processes.Zombie)

	require.Equal(t, StatusOK, r.Network.Status)
	require.Len(t, r.Network.Interfaces, 1)
	iface := r.Network.Interfaces[0]
	require.Equal(t, "eth0", iface.Name)
	require.Equal(t, "up", iface.State)
	require.InDelta(t, 10.0, iface.RxMB, 0.01)
	require.InDelta(t, 5.0, iface.TxMB, 0.01)
	require.Equal(t, uint64(3), iface.RxErrors)
	require.Equal(t, uint64(1), iface.TxErrors)
}

func TestCollectCPUClassification(t *testing.T) {
	t.Run("warning", func(t *testing.T) {
		c := newFixtureCollector(t, healthyProcFiles(), nil)
		// Delta: 100 total, 20 idle, so 80% busy.
		scriptSamples(c, cpuSample(100, 900), cpuSample(180, 920))

		r := c.Collect(context.Background())

		require.Equal(t, StatusWarning, r.CPU.Status)
		require.NotNil(t, r.CPU.UsagePercent)
		require.InDelta(t, 80.0, *r.CPU.UsagePercent, 0.01)
		require.Contains(t, r.Warnings, "CPU usage at 80.0% (warning threshold: 80%)")
		require.Equal(t, 1, r.ExitCode())
	})

	t.Run("critical", func(t *testing.T) {
		c := newFixtureCollector(t, healthyProcFiles(), nil)
		// Delta: 100 total, 4 idle, so 96% busy.
		scriptSamples(c, cpuSample(100, 900), cpuSample(196, 904))

		r := c.Collect(context.Background())

		require.Equal(t, StatusCritical, r.CPU.Status)
		require.NotNil(t, r.CPU.UsagePercent)
		require.InDelta(t, 96.0, *r.CPU.UsagePercent, 0.01)
		require.Contains(t, r.Issues, "CPU usage at 96.0% (critical threshold: 95%)")
		require.Equal(t, StatusCritical, r.Status)
		require.Equal(t, 2, r.ExitCode())
	})
}

func TestCollectMemoryClassification(t *testing.T) {
	t.Run("warning", func(t *testing.T) {
		files := healthyProcFiles()
		// 800 MB available of 8000 MB: 90% used.
		files["meminfo"] = meminfoFixture(8192000, 819200, 0, 0)
		c := newFixtureCollector(t, files, nil)

		r := c.Collect(context.Background())

		require.Equal(t, StatusWarning, r.Memory.Status)
		require.Contains(t, r.Warnings, "Memory usage at 90.0% (warning threshold: 85%)")
		require.Equal(t, 1, r.ExitCode())
	})

	t.Run("critical", func(t *testing.T) {
		files := healthyProcFiles()
		// 200 MB available of 8000 MB: 97.5% used.
		files["meminfo"] = meminfoFixture(8192000, 204800, 0, 0)
		c := newFixtureCollector(t, files, nil)

		r := c.Collect(context.Background())

		require.Equal(t, StatusCritical, r.Memory.Status)
		require.Contains(t, r.Issues, "Memory usage at 97.5% (critical threshold: 95%)")
		require.Equal(t, 2, r.ExitCode())
	})
}

func TestCollectSwapWarning(t *testing.T) {
	files := healthyProcFiles()
	// Memory at 50%, swap at 75%.
	files["meminfo"] = meminfoFixture(8192000, 4096000, 2097152, 524288)
	c := newFixtureCollector(t, files, nil)

	r := c.Collect(context.Background())

	// Heavy swapping warns without reclassifying the memory section.
	require.Equal(t, StatusOK, r.Memory.Status)
	require.Equal(t, uint64(1536), r.Memory.SwapUsedMB)
	require.InDelta(t, 75.0, r.Memory.SwapPercent, 0.01)
	require.Contains(t, r.Warnings, "Swap usage at 75.0%")
	require.Equal(t, StatusWarning, r.Status)
}

func TestCollectLoadClassification(t *testing.T) {
	t.Run("elevated", func(t *testing.T) {
		files := healthyProcFiles()
		files["loadavg"] = "3.20 2.80 2.50 2/345 999\n"
		c := newFixtureCollector(t, files, nil)

		r := c.Collect(context.Background())

		require.Equal(t, StatusWarning, r.Load.Status)
		require.InDelta(t, 1.6, r.Load.PerCore, 0.001)
		require.Contains(t, r.Warnings, "Load average 3.2 is elevated for 2 cores (load per core: 1.60)")
	})

	t.Run("high", func(t *testing.T) {
		files := healthyProcFiles()
		files["loadavg"] = "5.20 4.10 3.00 2/345 999\n"
		c := newFixtureCollector(t, files, nil)

		r := c.Collect(context.Background())

		require.Equal(t, StatusCritical, r.Load.Status)
		require.InDelta(t, 2.6, r.Load.PerCore, 0.001)
		require.Contains(t, r.Issues, "Load average 5.2 is high for 2 cores (load per core: 2.60)")
		require.Equal(t, 2, r.ExitCode())
	})
}

func TestCollectDiskUsage(t *testing.T) {
	c := newFixtureCollector(t, healthyProcFiles(), nil)
	c.mountsFn = func() ([]*procfs.MountInfo, error) {
		return []*procfs.MountInfo{
			{MountPoint: "/", Source: "/dev/sda1", FSType: "ext4"},
			{MountPoint: "/proc", Source: "proc", FSType: "proc"},
			{MountPoint: "/data", Source: "/dev/sdb1", FSType: "xfs"},
			{MountPoint: "/broken", Source: "/dev/sdc1", FSType: "ext4"},
		}, nil
	}
	c.statfsFn = func(path string, buf *unix.Statfs_t) error {
		switch path {
		case "/":
			fillStatfs(buf, 26214400, 13107200, 13107200) // 100 GiB, half used
		case "/data":
			fillStatfs(buf, 26214400, 2621440, 2621440) // 100 GiB, 90% used
		case "/broken":
			return errors.New("permission denied")
		}
		return nil
	}

	r := c.Collect(context.Background())

	// Virtual filesystems are filtered and unreadable mounts skipped.
	require.Len(t, r.Disk, 2)

	root := r.Disk[0]
	require.Equal(t, "/", root.Mountpoint)
	require.Equal(t, "/dev/sda1", root.Device)
	require.Equal(t, "ext4", root.FSType)
	require.InDelta(t, 100.0, root.TotalGB, 0.01)
	require.InDelta(t, 50.0, root.UsedGB, 0.01)
	require.InDelta(t, 50.0, root.UsagePercent, 0.01)
	require.Equal(t, StatusOK, root.Status)

	data := r.Disk[1]
	require.Equal(t, "/data", data.Mountpoint)
	require.InDelta(t, 90.0, data.UsagePercent, 0.01)
	require.Equal(t, StatusWarning, data.Status)
	require.Contains(t, r.Warnings, "Disk /data at 90.0% (warning threshold: 85%)")
}

func TestCollectDiskCritical(t *testing.T) {
	c := newFixtureCollector(t, healthyProcFiles(), nil)
	c.mountsFn = func() ([]*procfs.MountInfo, error) {
		return []*procfs.MountInfo{
			{MountPoint: "/", Source: "/dev/sda1", FSType: "ext4"},
		}, nil
	}
	c.statfsFn = func(path string, buf *unix.Statfs_t) error {
		fillStatfs(buf, 26214400, 524288, 524288) // 98% used
		return nil
	}

	r := c.Collect(context.Background())

	require.Equal(t, StatusCritical, r.Disk[0].Status)
	require.Contains(t, r.Issues, "Disk / at 98.0% (critical threshold: 95%)")
	require.Equal(t, 2, r.ExitCode())
}

func TestCollectProcessStates(t *testing.T) {
	files := healthyProcFiles()
	files["104/stat"] = procStatLine(104, "defunct", "Z")
	files["105/stat"] = procStatLine(105, "paused", "T")
	c := newFixtureCollector(t, files, nil)

	r := c.Collect(context.Background())

	require.Equal(t, 5, r.Processes.Total)
	require.Equal(t, 1, r.Processes.Running)
	require.Equal(t, 2, r.Processes.Sleeping)
	require.Equal(t, 1, r.Processes.Zombie)
	require.Equal(t, 1, r.Processes.Stopped)
	require.Contains(t, r.Warnings, "Found 1 zombie process(es)")
}

func TestCollectNetworkInterfaceDown(t *testing.T) {
	files := healthyProcFiles()
	files["net/dev"] = netDevTwoInterfaces
	c := newFixtureCollector(t, files, map[string]string{
		"eth0/operstate": "up\n",
		"eth1/operstate": "down\n",
	})

	r := c.Collect(context.Background())

	require.Len(t, r.Network.Interfaces, 2)
	require.Equal(t, "eth0", r.Network.Interfaces[0].Name)
	require.Equal(t, "up", r.Network.Interfaces[0].State)
	require.Equal(t, "eth1", r.Network.Interfaces[1].Name)
	require.Equal(t, "down", r.Network.Interfaces[1].State)
	require.Contains(t, r.Warnings, "Network interface eth1 is down")
	require.Equal(t, StatusWarning, r.Status)
}

func TestCollectServiceProbes(t *testing.T) {
	c := newFixtureCollector(t, healthyProcFiles(), nil)
	c.cfg.Services = []string{"sshd", "cron", "ghost"}
	c.probeFn = func(ctx context.Context, service string) (string, bool) {
		switch service {
		case "sshd":
			return "active", true
		case "cron":
			return "inactive", true
		default:
			return "", false
		}
	}

	r := c.Collect(context.Background())

	// Units systemd does not know about are omitted entirely.
	require.Equal(t, []ServiceHealth{
		{Name: "sshd", Status: "active"},
		{Name: "cron", Status: "inactive"},
	}, r.Services)
	require.Contains(t, r.Warnings, "Service cron is inactive")
	require.Equal(t, StatusWarning, r.Status)
}

func TestCollectUnreadableSectionsDegrade(t *testing.T) {
	c := newFixtureCollector(t, nil, nil)

	r := c.Collect(context.Background())

	require.Equal(t, StatusUnknown, r.CPU.Status)
	require.Equal(t, StatusUnknown, r.Memory.Status)
	require.Equal(t, StatusUnknown, r.Load.Status)
	require.Equal(t, StatusUnknown, r.Network.Status)
	require.Equal(t, StatusOK, r.Processes.Status)
	require.Equal(t, 0, r.Processes.Total)
	require.Empty(t, r.Uptime)

	// Unknown sections never degrade the overall status.
	require.Equal(t, StatusOK, r.Status)
	require.Equal(t, 0, r.ExitCode())
}

func TestReportRendering(t *testing.T) {
	c := newFixtureCollector(t, healthyProcFiles(), map[string]string{
		"eth0/operstate": "up\n",
	})
	r := c.Collect(context.Background())

	text := r.Render()
	require.Contains(t, text, "SYSTEM HEALTH CHECK")
	require.Contains(t, text, "Status:    OK")
	require.Contains(t, text, "Hostname:  testhost")
	require.Contains(t, text, "CPU: OK")
	require.Contains(t, text, "Uptime:  1d 0h 0m")
	require.Contains(t, text, "✓ eth0")

	out, err := r.RenderJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Equal(t, "OK", decoded["status"])
	require.Contains(t, decoded, "cpu")
	require.Contains(t, decoded, "memory")
	// Empty issue lists serialize as [], not null.
	require.Equal(t, []any{}, decoded["issues"])
}

func TestNewCollectorMissingProcRoot(t *testing.T) {
	_, err := NewCollector(Config{ProcRoot: "/definitely/not/here"}, quietLogger())
	require.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	require.Equal(t, "/proc", cfg.ProcRoot)
	require.Equal(t, DefaultSysNetRoot, cfg.SysNetRoot)
	require.Equal(t, Thresholds{CPU: 80, Memory: 85, Disk: 85}, cfg.Warning)
	require.Equal(t, Thresholds{CPU: 95, Memory: 95, Disk: 95}, cfg.Critical)
	require.Equal(t, DefaultSampleDelay, cfg.SampleDelay)
	require.Equal(t, DefaultServices, cfg.Services)
}

func TestFormatUptime(t *testing.T) {
	require.Equal(t, "1d 0h 0m", formatUptime(86400))
	require.Equal(t, "0d 1h 1m", formatUptime(3661))
	require.Equal(t, "3d 4h 12m", formatUptime(3*86400+4*3600+12*60))
}
