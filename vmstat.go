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
	"math"
	"time"
)

// VMStatSample bundles what the vmstat fields are computed from: the current
// system stat and memory info, and optionally the previous system stat
// together with the time elapsed since it was taken. Without a previous system
// stat, rates and percentages are averages since boot.
type VMStatSample struct {
	Prev    *SystemStat
	Cur     *SystemStat
	Mem     *MemoryInfo
	Elapsed float64 // seconds since Prev; derived from the Taken times if 0
}

// VMStatField describes a single vmstat column.
type VMStatField struct {
	Name    string
	Extract func(s *VMStatSample) Value
	Format  Format
}

// VMStatFields lists the vmstat columns in display order.
var VMStatFields = []VMStatField{
	{Name: "r", Extract: func(s *VMStatSample) Value { return IntValue(s.Cur.ProcsRunning) }},
	{Name: "b", Extract: func(s *VMStatSample) Value { return IntValue(s.Cur.ProcsBlocked) }},
	{Name: "swpd", Extract: func(s *VMStatSample) Value {
		return IntValue(s.Mem.IntValue(SwapTotal) - s.Mem.IntValue(SwapFree))
	}},
	{Name: "free", Extract: func(s *VMStatSample) Value { return IntValue(s.Mem.IntValue(MemFree)) }},
	{Name: "buff", Extract: func(s *VMStatSample) Value { return IntValue(s.Mem.IntValue(Buffers)) }},
	{Name: "cache", Extract: func(s *VMStatSample) Value {
		return IntValue(s.Mem.IntValue(Cached) + s.Mem.IntValue(SReclaimable))
	}},
	{Name: "in", Extract: func(s *VMStatSample) Value {
		return s.perSecond(func(st *SystemStat) int64 { return st.Interrupts() })
	}},
	{Name: "cs", Extract: func(s *VMStatSample) Value {
		return s.perSecond(func(st *SystemStat) int64 { return st.Ctxt })
	}},
	{Name: "us", Extract: func(s *VMStatSample) Value {
		return s.percent(func(c CPUStat) int64 { return c.User + c.Nice })
	}},
	{Name: "sy", Extract: func(s *VMStatSample) Value {
		return s.percent(func(c CPUStat) int64 { return c.System + c.IRQ + c.SoftIRQ })
	}},
	{Name: "id", Extract: func(s *VMStatSample) Value {
		return s.percent(func(c CPUStat) int64 { return c.Idle })
	}},
	{Name: "wa", Extract: func(s *VMStatSample) Value {
		return s.percent(func(c CPUStat) int64 { return c.IOWait })
	}},
	{Name: "st", Extract: func(s *VMStatSample) Value {
		return s.percent(func(c CPUStat) int64 { return c.Steal })
	}},
}

// VMStatNames returns the names of the vmstat columns in display order.
func VMStatNames() []string {
	names := make([]string, 0, len(VMStatFields))
	for _, f := range VMStatFields {
		names = append(names, f.Name)
	}
	return names
}

func vmstatField(name string) (VMStatField, bool) {
	for _, f := range VMStatFields {
		if f.Name == name {
			return f, true
		}
	}
	return VMStatField{}, false
}

// VMStatAttrs returns the requested vmstat attributes prefixed by the capture
// time attribute. Requested names that aren't vmstat columns are looked up in
// the memory info instead; names found in neither are left out. If no names
// are requested, all vmstat columns are returned.
func VMStatAttrs(now time.Time, s *VMStatSample, requested []string) []Attr {
	if len(requested) == 0 {
		requested = VMStatNames()
	}
	attrs := make([]Attr, 0, 1+len(requested))
	attrs = append(attrs, CaptureTimeAttr(now))
	for _, name := range requested {
		if f, ok := vmstatField(name); ok {
			attrs = append(attrs, Attr{Name: f.Name, Value: f.Extract(s), Format: f.Format})
			continue
		}
		if attr := s.Mem.Get(name); !attr.IsEmpty() {
			attrs = append(attrs, attr)
		}
	}
	return attrs
}

// elapsed returns the seconds to divide counter differences by, which are the
// seconds since boot if there is no previous sample.
func (s *VMStatSample) elapsed() float64 {
	if s.Prev == nil {
		return max(float64(s.Cur.Taken.Unix()-s.Cur.BTime), MinElapsed)
	}
	if s.Elapsed > 0 {
		return max(s.Elapsed, MinElapsed)
	}
	return max(s.Cur.Taken.Sub(s.Prev.Taken).Seconds(), MinElapsed)
}

func (s *VMStatSample) perSecond(counter func(*SystemStat) int64) Value {
	delta := counter(s.Cur)
	if s.Prev != nil {
		delta -= counter(s.Prev)
	}
	return IntValue(int64(math.Floor(float64(delta) / s.elapsed())))
}

// percent returns the rounded percentage of the selected CPU times relative
// to the total CPU time, over all CPUs.
func (s *VMStatSample) percent(part func(CPUStat) int64) Value {
	cpu := s.Cur.CPU
	if s.Prev != nil {
		cpu = cpu.Sub(s.Prev.CPU)
	}
	total := cpu.Total()
	if total <= 0 {
		return IntValue(0)
	}
	return IntValue((100*part(cpu) + total/2) / total)
}
