// Package diagnostics writes a full host health report.
package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"opencode/internal/docker"
	"opencode/internal/sensors"
)

const (
	PingHost    = "8.8.8.8"
	PingCount   = 3
	PingTimeout = 10 * time.Second

	gb = 1 << 30
	mb = 1 << 20

	rule = "============================================================"
)

type HostReader interface {
	CPU(ctx context.Context, sample time.Duration) (sensors.CPUInfo, error)
	Temperature(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (sensors.MemoryInfo, error)
	Partitions(ctx context.Context) ([]sensors.Partition, error)
	Interfaces(ctx context.Context) ([]sensors.Interface, error)
	IO(ctx context.Context) (sensors.IOCounters, error)
	Processes(ctx context.Context) ([]sensors.Proc, error)
}

type Pinger interface {
	Ping(ctx context.Context, host string, count int, timeout time.Duration) (bool, error)
}

type DockerInfo interface {
	Version(ctx context.Context) (string, error)
	Containers(ctx context.Context) ([]docker.Container, error)
	DiskUsage(ctx context.Context) (string, error)
}

type Reporter struct {
	Host   HostReader
	Net    Pinger
	Docker DockerInfo

	// AudioDevices lists capture/playback devices; nil skips the section body.
	AudioDevices func() ([]string, error)

	Dir       string
	Out       io.Writer // receives a copy of the report
	CPUSample time.Duration
	Now       func() time.Time
}

func (r *Reporter) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func FileName(t time.Time) string {
	return "diagnostics_" + t.Format("20060102_150405") + ".txt"
}

// Run writes the report to Out and saves a copy under Dir, returning the
// file path. The report reaches Out even when saving fails.
func (r *Reporter) Run(ctx context.Context) (string, error) {
	var buf bytes.Buffer

	var w io.Writer = &buf
	if r.Out != nil {
		w = io.MultiWriter(&buf, r.Out)
	}

	log.Info("Running diagnostics", "dir", r.Dir)
	r.Write(ctx, w)

	path, err := r.save(buf.Bytes())
	if err != nil {
		log.Warn("Could not save report", "dir", r.Dir, "err", err)
		if r.Out != nil {
			fmt.Fprintf(r.Out, "\nCould not save report: %v\n", err)
		}
		return "", err
	}

	if r.Out != nil {
		fmt.Fprintf(r.Out, "\nReport saved to: %s\n", path)
	}

	return path, nil
}

func (r *Reporter) save(report []byte) (string, error) {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	path := filepath.Join(r.Dir, FileName(r.now()))
	if err := os.WriteFile(path, report, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	return path, nil
}

// Write emits every section. Section failures are reported inline.
func (r *Reporter) Write(ctx context.Context, w io.Writer) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "OpenCode System Diagnostics Report")
	fmt.Fprintf(w, "Generated: %s\n", r.now().Format(time.DateTime))
	fmt.Fprintln(w, rule)

	sections := []struct {
		title string
		fn    func(context.Context, io.Writer)
	}{
		{"CPU", r.cpu},
		{"Memory", r.memory},
		{"Disk", r.disk},
		{"Network", r.network},
		{"Docker", r.docker},
		{"Process", r.processes},
		{"Audio", r.audio},
	}

	for _, s := range sections {
		if ctx.Err() != nil {
			fmt.Fprintf(w, "\nDiagnostics interrupted: %v\n", ctx.Err())
			return
		}
		fmt.Fprintf(w, "\n=== %s Diagnostics ===\n", s.title)
		s.fn(ctx, w)
	}

	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "Diagnostics Complete")
	fmt.Fprintln(w, rule)
}

func (r *Reporter) cpu(ctx context.Context, w io.Writer) {
	sample := r.CPUSample
	if sample <= 0 {
		sample = 2 * time.Second
	}

	info, err := r.Host.CPU(ctx, sample)
	if err != nil {
		fmt.Fprintf(w, "Unable to read CPU usage: %v\n", err)
		return
	}

	per := make([]string, len(info.PerCore))
	for i, p := range info.PerCore {
		per[i] = fmt.Sprintf("%.1f", p)
	}

	fmt.Fprintf(w, "CPU Usage per core: [%s]\n", strings.Join(per, ", "))
	fmt.Fprintf(w, "Average CPU Usage: %.2f%%\n", info.Average)
	fmt.Fprintf(w, "CPU Count: %d cores\n", info.Count)
	if info.MHz > 0 {
		fmt.Fprintf(w, "CPU Frequency: %.2f MHz\n", info.MHz)
	}

	if t, err := r.Host.Temperature(ctx); err == nil {
		fmt.Fprintf(w, "CPU Temperature: %.1f°C\n", t)
	} else {
		fmt.Fprintln(w, "Temperature sensors not available")
	}
}

func (r *Reporter) memory(ctx context.Context, w io.Writer) {
	m, err := r.Host.Memory(ctx)
	if err != nil {
		fmt.Fprintf(w, "Unable to read memory usage: %v\n", err)
		return
	}

	fmt.Fprintf(w, "Total Memory: %.2f GB\n", float64(m.Total)/gb)
	fmt.Fprintf(w, "Available Memory: %.2f GB\n", float64(m.Available)/gb)
	fmt.Fprintf(w, "Used Memory: %.2f GB (%.1f%%)\n", float64(m.Used)/gb, m.UsedPercent)
	fmt.Fprintf(w, "Swap Total: %.2f GB\n", float64(m.SwapTotal)/gb)
	fmt.Fprintf(w, "Swap Used: %.2f GB (%.1f%%)\n", float64(m.SwapUsed)/gb, m.SwapPercent)
}

func (r *Reporter) disk(ctx context.Context, w io.Writer) {
	parts, err := r.Host.Partitions(ctx)
	if err != nil {
		fmt.Fprintf(w, "Unable to list partitions: %v\n", err)
		return
	}

	for _, p := range parts {
		fmt.Fprintf(w, "\nPartition: %s\n", p.Device)
		fmt.Fprintf(w, "  Mountpoint: %s\n", p.Mountpoint)
		fmt.Fprintf(w, "  File system: %s\n", p.Fstype)
		fmt.Fprintf(w, "  Total: %.2f GB\n", float64(p.Total)/gb)
		fmt.Fprintf(w, "  Used: %.2f GB (%.1f%%)\n", float64(p.Used)/gb, p.UsedPercent)
		fmt.Fprintf(w, "  Free: %.2f GB\n", float64(p.Free)/gb)
	}
}

func (r *Reporter) network(ctx context.Context, w io.Writer) {
	ifaces, err := r.Host.Interfaces(ctx)
	if err != nil {
		fmt.Fprintf(w, "Unable to list interfaces: %v\n", err)
	}
	for _, in := range ifaces {
		fmt.Fprintf(w, "\nInterface: %s\n", in.Name)
		for _, a := range in.Addrs {
			fmt.Fprintf(w, "  %s\n", a)
		}
	}

	if c, err := r.Host.IO(ctx); err == nil {
		fmt.Fprintln(w, "\nNetwork I/O:")
		fmt.Fprintf(w, "  Bytes Sent: %.2f MB\n", float64(c.BytesSent)/mb)
		fmt.Fprintf(w, "  Bytes Received: %.2f MB\n", float64(c.BytesRecv)/mb)
	} else {
		fmt.Fprintf(w, "\nUnable to read network I/O: %v\n", err)
	}

	fmt.Fprintln(w, "\nConnectivity Test:")
	ok, err := r.Net.Ping(ctx, PingHost, PingCount, PingTimeout)
	switch {
	case err != nil:
		fmt.Fprintln(w, "  Internet: Unable to test")
	case ok:
		fmt.Fprintln(w, "  Internet: Connected")
	default:
		fmt.Fprintln(w, "  Internet: Disconnected")
	}
}

func (r *Reporter) docker(ctx context.Context, w io.Writer) {
	if err := r.dockerSection(ctx, w); err != nil {
		if errors.Is(err, docker.ErrNotInstalled) {
			fmt.Fprintln(w, "Docker not installed or not accessible")
			return
		}
		fmt.Fprintln(w, "Docker not running or permission denied")
	}
}

func (r *Reporter) dockerSection(ctx context.Context, w io.Writer) error {
	version, err := r.Docker.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Docker Version: %s\n", version)

	cts, err := r.Docker.Containers(ctx)
	if err != nil {
		return err
	}
	if len(cts) == 0 {
		fmt.Fprintln(w, "\nNo running containers")
	} else {
		fmt.Fprintln(w, "\nRunning Containers:")
		for _, c := range cts {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", c.Name, c.Status, c.Size)
		}
	}

	df, err := r.Docker.DiskUsage(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\nDocker System Usage:")
	fmt.Fprintln(w, strings.TrimRight(df, "\n"))

	return nil
}

func (r *Reporter) processes(ctx context.Context, w io.Writer) {
	ps, err := r.Host.Processes(ctx)
	if err != nil {
		fmt.Fprintf(w, "Unable to list processes: %v\n", err)
		return
	}

	fmt.Fprintln(w, "\nTop 5 CPU Consumers:")
	for _, p := range sensors.TopByCPU(ps, 5) {
		fmt.Fprintf(w, "  %s: %.1f%%\n", p.Name, p.CPU)
	}

	fmt.Fprintln(w, "\nTop 5 Memory Consumers:")
	for _, p := range sensors.TopByMemory(ps, 5) {
		fmt.Fprintf(w, "  %s: %.1f%%\n", p.Name, p.Memory)
	}
}

func (r *Reporter) audio(_ context.Context, w io.Writer) {
	if r.AudioDevices == nil {
		fmt.Fprintln(w, "Unable to query audio devices: audio backend not available")
		return
	}

	devs, err := r.AudioDevices()
	if err != nil {
		fmt.Fprintf(w, "Unable to query audio devices: %v\n", err)
		return
	}

	fmt.Fprintln(w, "Audio Devices:")
	for _, d := range devs {
		fmt.Fprintf(w, "  %s\n", d)
	}
}
