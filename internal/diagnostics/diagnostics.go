// Package diagnostics collects host, resource and configuration information
// into a support report for bug reports.
package diagnostics

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"gopkg.in/yaml.v3"

	"github.com/izzarra/Vertigini-VR/internal/conf"
	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/logging"
)

// ComponentDiagnostics tags errors originating from support collection.
const ComponentDiagnostics = "diagnostics"

// defaultSampleInterval is the CPU usage sampling window.
const defaultSampleInterval = time.Second

// SystemInfo describes the host environment.
type SystemInfo struct {
	OS            string `json:"os"`
	Architecture  string `json:"architecture"`
	Hostname      string `json:"hostname"`
	Platform      string `json:"platform"`
	PlatformVer   string `json:"platform_version"`
	KernelVersion string `json:"kernel_version"`
	UptimeSeconds uint64 `json:"uptime_seconds"`
	NumCPU        int    `json:"num_cpu"`
	GoVersion     string `json:"go_version"`
	Goroutines    int    `json:"goroutines"`
}

// ResourceInfo describes resource usage at collection time.
type ResourceInfo struct {
	CPUUsagePercent   float64 `json:"cpu_usage_percent"`
	MemoryTotal       uint64  `json:"memory_total"`
	MemoryUsed        uint64  `json:"memory_used"`
	MemoryFree        uint64  `json:"memory_free"`
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	ProcessMemoryMB   float64 `json:"process_memory_mb"`
	ProcessCPUPercent float64 `json:"process_cpu_percent"`
}

// Report is one collected support dump. Sections that could not be gathered
// are left at their zero values and noted in Warnings.
type Report struct {
	ID          string         `json:"id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Version     string         `json:"version"`
	BuildDate   string         `json:"build_date"`
	SystemID    string         `json:"system_id"`
	System      SystemInfo     `json:"system"`
	Resources   ResourceInfo   `json:"resources"`
	Config      map[string]any `json:"config,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
}

// Options configures collection.
type Options struct {
	Settings *conf.Settings
	// SampleInterval is the CPU usage sampling window. Zero applies the
	// default of one second.
	SampleInterval time.Duration
	// IncludeConfig embeds the scrubbed configuration in the report.
	IncludeConfig bool
}

// Collect gathers a support report. Collection is best effort: a section
// that fails is skipped with a warning, never an error, so a broken host
// still produces a usable report.
func Collect(opts Options) *Report {
	logger := logging.ForService(ComponentDiagnostics)

	interval := opts.SampleInterval
	if interval <= 0 {
		interval = defaultSampleInterval
	}

	r := &Report{
		ID:          uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
	}
	if opts.Settings != nil {
		r.Version = opts.Settings.Version
		r.BuildDate = opts.Settings.BuildDate
		r.SystemID = opts.Settings.SystemID
	}

	r.System = collectSystemInfo(r)
	r.Resources = collectResourceInfo(r, interval)

	if opts.IncludeConfig && opts.Settings != nil {
		config, err := scrubbedConfig(opts.Settings)
		if err != nil {
			r.warn("config: %v", err)
		} else {
			r.Config = config
		}
	}

	if logger != nil {
		logger.Info("support report collected", "id", r.ID, "warnings", len(r.Warnings))
	}
	return r
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func collectSystemInfo(r *Report) SystemInfo {
	info := SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		GoVersion:    runtime.Version(),
		Goroutines:   runtime.NumGoroutine(),
	}

	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}

	hostInfo, err := host.Info()
	if err != nil {
		r.warn("host info: %v", err)
		return info
	}
	info.Platform = hostInfo.Platform
	info.PlatformVer = hostInfo.PlatformVersion
	info.KernelVersion = hostInfo.KernelVersion
	info.UptimeSeconds = hostInfo.Uptime
	return info
}

func collectResourceInfo(r *Report, interval time.Duration) ResourceInfo {
	var info ResourceInfo

	if memInfo, err := mem.VirtualMemory(); err != nil {
		r.warn("memory info: %v", err)
	} else {
		info.MemoryTotal = memInfo.Total
		info.MemoryUsed = memInfo.Used
		info.MemoryFree = memInfo.Free
		info.MemoryUsedPercent = memInfo.UsedPercent
	}

	if cpuPercent, err := cpu.Percent(interval, false); err != nil {
		r.warn("cpu usage: %v", err)
	} else if len(cpuPercent) > 0 {
		info.CPUUsagePercent = cpuPercent[0]
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		r.warn("process info: %v", err)
		return info
	}
	if procMem, err := proc.MemoryInfo(); err == nil && procMem != nil {
		info.ProcessMemoryMB = float64(procMem.RSS) / 1024 / 1024
	}
	if procCPU, err := proc.CPUPercent(); err == nil {
		info.ProcessCPUPercent = procCPU
	}
	return info
}

// scrubbedConfig round-trips the settings through YAML into a generic map
// and redacts sensitive values.
func scrubbedConfig(settings *conf.Settings) (map[string]any, error) {
	raw, err := yaml.Marshal(settings)
	if err != nil {
		return nil, err
	}
	var config map[string]any
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, err
	}
	return ScrubConfig(config), nil
}

// Render formats the report as a plain-text document.
func (r *Report) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "support report %s\n", r.ID)
	fmt.Fprintf(&b, "generated at:   %s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "version:        %s (%s)\n", r.Version, r.BuildDate)
	if r.SystemID != "" {
		fmt.Fprintf(&b, "system id:      %s\n", r.SystemID)
	}

	fmt.Fprintf(&b, "\n[system]\n")
	fmt.Fprintf(&b, "os:             %s/%s\n", r.System.OS, r.System.Architecture)
	fmt.Fprintf(&b, "hostname:       %s\n", r.System.Hostname)
	fmt.Fprintf(&b, "platform:       %s %s\n", r.System.Platform, r.System.PlatformVer)
	fmt.Fprintf(&b, "kernel:         %s\n", r.System.KernelVersion)
	fmt.Fprintf(&b, "uptime:         %ds\n", r.System.UptimeSeconds)
	fmt.Fprintf(&b, "cpus:           %d\n", r.System.NumCPU)
	fmt.Fprintf(&b, "go:             %s (%d goroutines)\n", r.System.GoVersion, r.System.Goroutines)

	fmt.Fprintf(&b, "\n[resources]\n")
	fmt.Fprintf(&b, "cpu usage:      %.1f%%\n", r.Resources.CPUUsagePercent)
	fmt.Fprintf(&b, "memory:         %d/%d MB (%.1f%%)\n",
		r.Resources.MemoryUsed/1024/1024,
		r.Resources.MemoryTotal/1024/1024,
		r.Resources.MemoryUsedPercent)
	fmt.Fprintf(&b, "process memory: %.1f MB\n", r.Resources.ProcessMemoryMB)
	fmt.Fprintf(&b, "process cpu:    %.1f%%\n", r.Resources.ProcessCPUPercent)

	if r.Config != nil {
		fmt.Fprintf(&b, "\n[config]\n")
		if raw, err := yaml.Marshal(r.Config); err == nil {
			b.Write(raw)
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "\n[warnings]\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}

// WriteFile renders the report and writes it to path.
func (r *Report) WriteFile(path string) error {
	if err := os.WriteFile(path, []byte(r.Render()), 0o600); err != nil {
		return errors.New(err).
			Component(ComponentDiagnostics).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}
