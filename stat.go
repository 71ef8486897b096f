// Copyright 2024 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

package xproc

import (
	"io"
	"strings"
	"time"
)

// cpuStatFields is the number of time fields of a cpu line, from user up to
// and including guest_nice.
const cpuStatFields = 10

// softIRQFields is the number of fields of the softirq line: the total,
// followed by the ten softirq vectors.
const softIRQFields = 11

// CPUStat holds the time spent by a CPU (or all CPUs) in various modes, in
// USER_HZ units (usually 1/100s).
type CPUStat struct {
	User      int64
	Nice      int64
	System    int64
	Idle      int64
	IOWait    int64
	IRQ       int64
	SoftIRQ   int64
	Steal     int64
	Guest     int64 // already accounted for in User
	GuestNice int64 // already accounted for in Nice
}

// Total returns the total time, not counting guest times twice.
func (c CPUStat) Total() int64 {
	return c.User + c.Nice + c.System + c.Idle + c.IOWait + c.IRQ + c.SoftIRQ + c.Steal
}

// Sub returns the differences of the times of c minus other.
func (c CPUStat) Sub(other CPUStat) CPUStat {
	return CPUStat{
		User:      c.User - other.User,
		Nice:      c.Nice - other.Nice,
		System:    c.System - other.System,
		Idle:      c.Idle - other.Idle,
		IOWait:    c.IOWait - other.IOWait,
		IRQ:       c.IRQ - other.IRQ,
		SoftIRQ:   c.SoftIRQ - other.SoftIRQ,
		Steal:     c.Steal - other.Steal,
		Guest:     c.Guest - other.Guest,
		GuestNice: c.GuestNice - other.GuestNice,
	}
}

// SoftIRQStat holds the number of softirqs serviced since boot, in total and
// per softirq vector.
type SoftIRQStat struct {
	Total   int64
	HI      int64
	Timer   int64
	NetTX   int64
	NetRX   int64
	Block   int64
	IRQPoll int64
	Tasklet int64
	Sched   int64
	HRTimer int64
	RCU     int64
}

// SystemStat is a snapshot of “/proc/stat”.
type SystemStat struct {
	CPU          CPUStat   // aggregate over all CPUs
	CPUs         []CPUStat // per logical CPU
	Intr         []int64   // total interrupts, followed by the per-IRQ counts
	Ctxt         int64     // context switches
	BTime        int64     // boot time in seconds since the epoch
	Processes    int64     // forks since boot
	ProcsRunning int64
	ProcsBlocked int64
	SoftIRQ      SoftIRQStat
	Taken        time.Time
}

// SystemStat returns a new snapshot of “/proc/stat”.
func (p Proc) SystemStat() (*SystemStat, error) {
	r, err := p.readReader(statNode)
	if err != nil {
		return nil, err
	}
	return ParseSystemStat(r, time.Now())
}

// ParseSystemStat returns a snapshot from text in “/proc/stat” format, taken
// at the specified time. Lines other than the ones for cpu, intr, ctxt, btime,
// processes, procs_running, procs_blocked, and softirq are ignored. Every cpu
// line must have at least ten time fields, as otherwise the positional
// interpretation of the fields would silently go wrong.
func ParseSystemStat(r io.Reader, taken time.Time) (*SystemStat, error) {
	stat := &SystemStat{Taken: taken}
	scalars := map[string]*int64{
		"ctxt":          &stat.Ctxt,
		"btime":         &stat.BTime,
		"processes":     &stat.Processes,
		"procs_running": &stat.ProcsRunning,
		"procs_blocked": &stat.ProcsBlocked,
	}
	haveCPU := false
	sc := newLineScanner(r)
	for sc.Scan() {
		bstr := newBytestring(sc.Bytes())
		name := string(bstr.Field())
		switch {
		case name == "cpu":
			cpu, err := parseCPUStat(name, bstr)
			if err != nil {
				return nil, err
			}
			stat.CPU = cpu
			haveCPU = true
		case strings.HasPrefix(name, "cpu"):
			cpu, err := parseCPUStat(name, bstr)
			if err != nil {
				return nil, err
			}
			stat.CPUs = append(stat.CPUs, cpu)
		case name == "intr":
			counters, err := parseCounters(name, bstr)
			if err != nil {
				return nil, err
			}
			stat.Intr = counters
		case name == "softirq":
			counters, err := parseCounters(name, bstr)
			if err != nil {
				return nil, err
			}
			if len(counters) < softIRQFields {
				return nil, shapeError("softirq: expected %d fields, got %d",
					softIRQFields, len(counters))
			}
			stat.SoftIRQ = SoftIRQStat{
				Total: counters[0], HI: counters[1], Timer: counters[2],
				NetTX: counters[3], NetRX: counters[4], Block: counters[5],
				IRQPoll: counters[6], Tasklet: counters[7], Sched: counters[8],
				HRTimer: counters[9], RCU: counters[10],
			}
		default:
			dest, ok := scalars[name]
			if !ok {
				continue
			}
			count, ok := bstr.Counter()
			if !ok {
				return nil, fieldError(name, sc.Text(), nil)
			}
			*dest = count
		}
	}
	if err := sc.Err(); err != nil {
		return nil, sourceError("", err)
	}
	if !haveCPU {
		return nil, shapeError("missing aggregate cpu line")
	}
	return stat, nil
}

// parseCounters parses the remaining fields of a line as counters.
func parseCounters(name string, bstr *bytestring) ([]int64, error) {
	counters := make([]int64, 0, bstr.NumFields())
	for !bstr.SkipSpace() {
		count, ok := bstr.Counter()
		if !ok {
			return nil, fieldError(name, string(bstr.b), nil)
		}
		counters = append(counters, count)
	}
	return counters, nil
}

func parseCPUStat(name string, bstr *bytestring) (CPUStat, error) {
	times, err := parseCounters(name, bstr)
	if err != nil {
		return CPUStat{}, err
	}
	if len(times) < cpuStatFields {
		return CPUStat{}, shapeError("%s: expected %d time fields, got %d",
			name, cpuStatFields, len(times))
	}
	return CPUStat{
		User: times[0], Nice: times[1], System: times[2], Idle: times[3],
		IOWait: times[4], IRQ: times[5], SoftIRQ: times[6], Steal: times[7],
		Guest: times[8], GuestNice: times[9],
	}, nil
}

// Interrupts returns the total number of interrupts serviced since boot.
func (s *SystemStat) Interrupts() int64 {
	if len(s.Intr) == 0 {
		return 0
	}
	return s.Intr[0]
}
