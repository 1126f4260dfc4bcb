// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package sysmon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"radvalve/v2/pkg/eventbus"
	"radvalve/v2/pkg/logger"

	"github.com/benbjohnson/clock"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// staleTicks is how many missed control periods make the loop unhealthy.
const staleTicks = 3

// Health is the control loop's liveness.
type Health interface {
	LastTick() time.Time
	TickCount() int64
}

type BusStats interface {
	Stats() eventbus.Stats
}

type Service struct {
	dir    string
	period time.Duration
	health Health
	bus    BusStats
	clock  clock.Clock
	start  time.Time
	log    *logger.Logger
}

// New monitors the host, the disk holding dir and the control loop
// expected to tick every period. bus may be nil.
func New(dir string, period time.Duration, health Health, bus BusStats, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.New()
	}
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return &Service{
		dir:    dir,
		period: period,
		health: health,
		bus:    bus,
		clock:  clk,
		start:  clk.Now(),
		log:    logger.New("System Monitor"),
	}
}

// Disk is filesystem usage in bytes. Used counts reserved blocks, so
// Used+Free can be less than Total.
type Disk struct {
	Path       string `json:"path"`
	Total      uint64 `json:"total"`
	Used       uint64 `json:"used"`
	Free       uint64 `json:"free"`
	Inodes     uint64 `json:"inodes"`
	FreeInodes uint64 `json:"free_inodes"`
}

type controllerHealth struct {
	Healthy    bool    `json:"healthy"`
	Ticks      int64   `json:"ticks"`
	LastTickS  float64 `json:"last_tick_age_s"`
	UptimeS    float64 `json:"uptime_s"`
	Starting   bool    `json:"starting"`
	PeriodSecs float64 `json:"period_s"`
}

// controllerStatus is unhealthy once no tick has landed for staleTicks
// periods. Before the first tick the grace period runs from start up.
func (s *Service) controllerStatus() controllerHealth {
	now := s.clock.Now()
	h := controllerHealth{
		Ticks:      s.health.TickCount(),
		UptimeS:    now.Sub(s.start).Seconds(),
		PeriodSecs: s.period.Seconds(),
	}
	last := s.health.LastTick()
	if last.IsZero() {
		h.Starting = true
		last = s.start
	}
	age := now.Sub(last)
	h.LastTickS = age.Seconds()
	h.Healthy = age <= staleTicks*s.period
	return h
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/healthz" {
		s.serveHealthz(w)
		return
	}

	// System-wide CPU and memory
	cpuPercentList, _ := cpu.Percent(0, false)
	cpuPercent := 0.0
	if len(cpuPercentList) > 0 {
		cpuPercent = cpuPercentList[0]
	}

	var vmemTotal, vmemUsed, vmemFree uint64
	if vmem, err := mem.VirtualMemory(); err == nil {
		vmemTotal, vmemUsed, vmemFree = vmem.Total, vmem.Used, vmem.Available
	}
	disk, err := DiskUsage(s.dir)
	if err != nil {
		s.log.Debug("disk usage %s: %v", s.dir, err)
	}

	// Current process stats
	p, err := process.NewProcess(int32(os.Getpid()))
	var procMem uint64
	var procCPU float64
	if err == nil {
		if memInfo, err := p.MemoryInfo(); err == nil {
			procMem = memInfo.RSS
		}
		if cpuPercent, err := p.CPUPercent(); err == nil {
			procCPU = cpuPercent
		}
	}

	ctl := s.controllerStatus()
	var bus eventbus.Stats
	if s.bus != nil {
		bus = s.bus.Stats()
	}

	metrics := map[string]any{
		"go_version": runtime.Version(),
		"controller": ctl,
		"eventbus":   bus,
		"cpu": map[string]any{
			"system_percent":  cpuPercent,
			"process_percent": procCPU,
		},
		"memory": map[string]any{
			"system_total": vmemTotal,
			"system_used":  vmemUsed,
			"system_free":  vmemFree,
			"process_rss":  procMem,
		},
		"disk": disk,
	}

	if r.Header.Get("Accept") == "application/json" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(metrics)
		return
	}

	state := "OK"
	if !ctl.Healthy {
		state = "STALLED"
	} else if ctl.Starting {
		state = "waiting for first tick"
	}

	const gb = 1024 * 1024 * 1024
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
	<title>System Monitor</title>
	<style>
		body { font-family: sans-serif; margin: 2em; background: #f9f9f9; }
		h1 { color: #333; }
		table { border-collapse: collapse; width: 60%%; margin-top: 1em; }
		th, td { border: 1px solid #ccc; padding: 0.6em 1em; text-align: left; }
		th { background: #eee; }
	</style>
</head>
<body>
	<h1>System Monitor</h1>
	<h2>Valve control loop</h2>
	<table>
		<tr><th>State</th><th>Ticks</th><th>Last tick</th><th>Uptime</th></tr>
		<tr><td>%s</td><td>%d</td><td>%.0f s ago</td><td>%.0f s</td></tr>
	</table>
	<h2>Event bus</h2>
	<table>
		<tr><th>Events</th><th>Sent</th><th>Replaced</th><th>Subscribers</th></tr>
		<tr><td>%d</td><td>%d</td><td>%d</td><td>%d</td></tr>
	</table>
	<h2>Go</h2>
	<p>Version: %s</p>
	<h2>CPU</h2>
	<table>
		<tr><th>System %%</th><th>Process %%</th></tr>
		<tr><td>%.2f%%</td><td>%.2f%%</td></tr>
	</table>
	<h2>Memory</h2>
	<table>
		<tr><th>System Total</th><th>System Used</th><th>System Free</th><th>Process RSS</th></tr>
		<tr><td>%.2f GB</td><td>%.2f GB</td><td>%.2f GB</td><td>%.2f MB</td></tr>
	</table>
	<h2>Disk (%s)</h2>
	<table>
		<tr><th>Total</th><th>Used</th><th>Free</th><th>Inodes free</th></tr>
		<tr><td>%.2f GB</td><td>%.2f GB</td><td>%.2f GB</td><td>%d / %d</td></tr>
	</table>
</body>
</html>
`,
		state, ctl.Ticks, ctl.LastTickS, ctl.UptimeS,
		bus.Events, bus.Sent, bus.Replaced, bus.Subscribers,
		runtime.Version(),
		cpuPercent, procCPU,
		float64(vmemTotal)/gb, float64(vmemUsed)/gb, float64(vmemFree)/gb,
		float64(procMem)/(1024*1024),
		s.dir,
		float64(disk.Total)/gb, float64(disk.Used)/gb, float64(disk.Free)/gb,
		disk.FreeInodes, disk.Inodes,
	)
}

// serveHealthz answers 503 while the control loop is stalled.
func (s *Service) serveHealthz(w http.ResponseWriter) {
	ctl := s.controllerStatus()
	w.Header().Set("Content-Type", "application/json")
	if !ctl.Healthy {
		s.log.Error("control loop stalled: last tick %.0fs ago", ctl.LastTickS)
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(ctl)
}
