// Package sensors reads host resource counters.
package sensors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/shirou/gopsutil/v4/sensors"
)

var ErrNoTemperature = errors.New("temperature sensors not available")

// Status is the short summary spoken by the system status intent.
type Status struct {
	CPU         float64
	Memory      float64
	Disk        float64
	Temperature float64
	HasTemp     bool
}

type CPUInfo struct {
	PerCore []float64
	Average float64
	Count   int
	MHz     float64
}

type MemoryInfo struct {
	Total, Available, Used uint64
	UsedPercent            float64
	SwapTotal, SwapUsed    uint64
	SwapPercent            float64
}

type Partition struct {
	Device      string
	Mountpoint  string
	Fstype      string
	Total       uint64
	Used        uint64
	Free        uint64
	UsedPercent float64
}

type Interface struct {
	Name  string
	Addrs []string
}

type IOCounters struct {
	BytesSent uint64
	BytesRecv uint64
}

type Proc struct {
	PID    int32
	Name   string
	CPU    float64
	Memory float32
}

// Host reads counters through gopsutil.
type Host struct {
	DiskPath string
}

func NewHost() *Host { return &Host{DiskPath: "/"} }

func (h *Host) Status(ctx context.Context) (Status, error) {
	pct, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil {
		return Status{}, fmt.Errorf("cpu percent: %w", err)
	}
	if len(pct) == 0 {
		return Status{}, errors.New("cpu percent: no samples")
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("virtual memory: %w", err)
	}

	du, err := disk.UsageWithContext(ctx, h.DiskPath)
	if err != nil {
		return Status{}, fmt.Errorf("disk usage %s: %w", h.DiskPath, err)
	}

	st := Status{CPU: pct[0], Memory: vm.UsedPercent, Disk: du.UsedPercent}
	if t, err := h.Temperature(ctx); err == nil {
		st.Temperature, st.HasTemp = t, true
	}

	return st, nil
}

// Temperature of the first coretemp sensor.
func (h *Host) Temperature(ctx context.Context) (float64, error) {
	temps, err := sensors.TemperaturesWithContext(ctx)
	if err != nil && len(temps) == 0 {
		return 0, fmt.Errorf("%w: %w", ErrNoTemperature, err)
	}

	for _, t := range temps {
		if strings.HasPrefix(t.SensorKey, "coretemp") {
			return t.Temperature, nil
		}
	}

	return 0, ErrNoTemperature
}

func (h *Host) CPU(ctx context.Context, sample time.Duration) (CPUInfo, error) {
	per, err := cpu.PercentWithContext(ctx, sample, true)
	if err != nil {
		return CPUInfo{}, fmt.Errorf("cpu percent: %w", err)
	}

	info := CPUInfo{PerCore: per}
	for _, p := range per {
		info.Average += p
	}
	if len(per) > 0 {
		info.Average /= float64(len(per))
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.Count = n
	}
	if ci, err := cpu.InfoWithContext(ctx); err == nil && len(ci) > 0 {
		info.MHz = ci[0].Mhz
	}

	return info, nil
}

func (h *Host) Memory(ctx context.Context) (MemoryInfo, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryInfo{}, fmt.Errorf("virtual memory: %w", err)
	}

	info := MemoryInfo{
		Total:       vm.Total,
		Available:   vm.Available,
		Used:        vm.Used,
		UsedPercent: vm.UsedPercent,
	}

	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil {
		info.SwapTotal, info.SwapUsed, info.SwapPercent = sw.Total, sw.Used, sw.UsedPercent
	}

	return info, nil
}

// Partitions skips mountpoints whose usage cannot be read.
func (h *Host) Partitions(ctx context.Context) ([]Partition, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("partitions: %w", err)
	}

	var res []Partition
	for _, p := range parts {
		u, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		res = append(res, Partition{
			Device:      p.Device,
			Mountpoint:  p.Mountpoint,
			Fstype:      p.Fstype,
			Total:       u.Total,
			Used:        u.Used,
			Free:        u.Free,
			UsedPercent: u.UsedPercent,
		})
	}

	return res, nil
}

func (h *Host) Interfaces(ctx context.Context) ([]Interface, error) {
	ifs, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("interfaces: %w", err)
	}

	res := make([]Interface, 0, len(ifs))
	for _, i := range ifs {
		it := Interface{Name: i.Name}
		for _, a := range i.Addrs {
			it.Addrs = append(it.Addrs, a.Addr)
		}
		res = append(res, it)
	}

	return res, nil
}

func (h *Host) IO(ctx context.Context) (IOCounters, error) {
	cs, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return IOCounters{}, fmt.Errorf("io counters: %w", err)
	}
	if len(cs) == 0 {
		return IOCounters{}, errors.New("io counters: empty")
	}
	return IOCounters{BytesSent: cs[0].BytesSent, BytesRecv: cs[0].BytesRecv}, nil
}

// Processes skips processes that vanish or deny access while being read.
func (h *Host) Processes(ctx context.Context) ([]Proc, error) {
	ps, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("processes: %w", err)
	}

	res := make([]Proc, 0, len(ps))
	for _, p := range ps {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		c, _ := p.CPUPercentWithContext(ctx)
		m, _ := p.MemoryPercentWithContext(ctx)
		res = append(res, Proc{PID: p.Pid, Name: name, CPU: c, Memory: m})
	}

	return res, nil
}

// TopByCPU returns the n busiest processes.
func TopByCPU(ps []Proc, n int) []Proc {
	out := append([]Proc(nil), ps...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CPU > out[j].CPU })
	return head(out, n)
}

// TopByMemory returns the n largest processes.
func TopByMemory(ps []Proc, n int) []Proc {
	out := append([]Proc(nil), ps...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Memory > out[j].Memory })
	return head(out, n)
}

func head(ps []Proc, n int) []Proc {
	if n >= 0 && len(ps) > n {
		return ps[:n]
	}
	return ps
}
