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
	"bytes"
	"cmp"
	"errors"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Labels of the two architecture-specific error counter lines in
// “/proc/interrupts”. Some architectures use “Err” instead of “ERR”.
const (
	ErrLabel = "ERR"
	MisLabel = "MIS"
)

// MinElapsed is the shortest interval between two interrupt snapshots used
// for computing rates, so that two snapshots taken at the same instant don't
// cause a division by zero.
const MinElapsed = 0.001

// CPUList lists the numbers of the CPUs currently being online, in the order
// of the counter columns in “/proc/interrupts”.
type CPUList []uint

// CountStat is a scalar interrupt error counter, such as ERR or MIS.
type CountStat struct {
	Label string
	Count int64
}

// Add returns the sum of both counters.
func (c CountStat) Add(other CountStat) CountStat {
	return CountStat{Label: c.Label, Count: c.Count + other.Count}
}

// Sub returns the difference of c minus other.
func (c CountStat) Sub(other CountStat) CountStat {
	return CountStat{Label: c.Label, Count: c.Count - other.Count}
}

// IntStat holds the per-CPU counters of a single interrupt line, such as for
// IRQ “16” or the local timer “LOC”.
//
// For snapshots, the CPUs are absolute counters since boot. For deltas, the
// CPUs are average interrupts per second over the sampling period, and Count
// is the total number of interrupts during the period.
type IntStat struct {
	Label  string   // IRQ number or architecture-specific name
	CPUs   []int64  // one counter per online CPU
	Extras []string // chip, hwirq, trigger type, device/action names
	Total  int64    // sum(CPUs)
	Count  int64    // interrupts counted; same as Total for snapshots
}

// NewIntStat returns a new IntStat with its Total (and Count) computed from
// the per-CPU counters. The slices are copied.
func NewIntStat(label string, cpus []int64, extras []string) IntStat {
	s := IntStat{
		Label:  label,
		CPUs:   slices.Clone(cpus),
		Extras: slices.Clone(extras),
	}
	for _, c := range cpus {
		s.Total += c
	}
	s.Count = s.Total
	return s
}

// Name returns the last descriptor token, which usually is the device or
// action name. If there are no descriptors, it returns the label.
func (s IntStat) Name() string {
	if len(s.Extras) == 0 {
		return s.Label
	}
	return s.Extras[len(s.Extras)-1]
}

// ExtraString returns the descriptor tokens joined by single spaces.
func (s IntStat) ExtraString() string { return strings.Join(s.Extras, " ") }

// Get returns the counter of the CPU with the specified column index, or 0
// if the index is out of range.
func (s IntStat) Get(cpuIdx int) int64 {
	if cpuIdx < 0 || cpuIdx >= len(s.CPUs) {
		return 0
	}
	return s.CPUs[cpuIdx]
}

// IRQ returns the IRQ number and true for numbered (hardware) IRQs, and false
// for architecture-specific interrupts.
func (s IntStat) IRQ() (uint, bool) {
	num, err := strconv.ParseUint(s.Label, 10, 0)
	if err != nil {
		return 0, false
	}
	return uint(num), true
}

// Add returns the per-CPU sum of both interrupt stats, which must have the
// same number of CPU counters.
func (s IntStat) Add(other IntStat) (IntStat, error) {
	if len(s.CPUs) != len(other.CPUs) {
		return IntStat{}, shapeError("IRQ %s: %d vs. %d CPUs", s.Label, len(s.CPUs), len(other.CPUs))
	}
	cpus := make([]int64, len(s.CPUs))
	for idx := range cpus {
		cpus[idx] = s.CPUs[idx] + other.CPUs[idx]
	}
	sum := NewIntStat(s.Label, cpus, s.Extras)
	sum.Count = s.Count + other.Count
	return sum, nil
}

// rate returns the average number of interrupts per second and CPU between
// the older stat and this stat, using floor division.
func (s IntStat) rate(older IntStat, secs float64) IntStat {
	cpus := make([]int64, len(s.CPUs))
	for idx := range cpus {
		cpus[idx] = int64(math.Floor(float64(s.CPUs[idx]-older.CPUs[idx]) / secs))
	}
	d := NewIntStat(s.Label, cpus, s.Extras)
	d.Count = s.Total - older.Total
	return d
}

// Interrupts is either a snapshot of “/proc/interrupts”, or the delta between
// two such snapshots. Interrupts are never modified after creation; all
// operations return new Interrupts.
type Interrupts struct {
	TotalInt int64     // sum of the totals of all interrupt lines
	Stats    []IntStat // interrupt lines in file order, unless sorted
	Err      CountStat
	Mis      CountStat
	// For snapshots, the capture time in seconds since the Unix epoch; for
	// deltas, the elapsed seconds between both snapshots.
	TsSecs float64
	CPUs   CPUList // online CPUs
	delta  bool
}

// IRQLabel pairs an interrupt label with its descriptor tokens.
type IRQLabel struct {
	Label  string
	Extras string
}

// Interrupts returns a new snapshot of “/proc/interrupts”.
func (p Proc) Interrupts() (*Interrupts, error) {
	r, err := p.readReader(interruptsNode)
	if err != nil {
		return nil, err
	}
	return ParseInterrupts(r, time.Now())
}

// ParseInterrupts returns a snapshot from text in “/proc/interrupts” format,
// taken at the specified time.
//
// The header line determines the number N of online CPUs. Every interrupt
// line must then have N counters followed by at least one descriptor token,
// except for the ERR and MIS lines, which have a single counter. Lines with
// fewer counters indicate torn or otherwise unreadable contents and are an
// ErrShapeMismatch.
func ParseInterrupts(r io.Reader, taken time.Time) (*Interrupts, error) {
	// Please note that sc.Bytes() returns a slice referencing the scanners
	// internal memory that becomes invalid with advancing to the next line.
	sc := newLineScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, sourceError("", err)
		}
		return nil, shapeError("missing interrupts header")
	}
	// Processing the first line we learn of the CPUs that are actually online
	// (their numbers).
	cpus := cpuList(sc.Bytes())
	numCPUs := len(cpus)
	if numCPUs == 0 {
		return nil, shapeError("no CPU columns in interrupts header %q", sc.Text())
	}
	ints := &Interrupts{
		Err:    CountStat{Label: ErrLabel},
		Mis:    CountStat{Label: MisLabel},
		TsSecs: float64(taken.UnixNano()) / 1e9,
		CPUs:   cpus,
	}
	counters := make([]int64, numCPUs)
	for sc.Scan() {
		bstr := newBytestring(sc.Bytes())
		if bstr.SkipSpace() {
			continue
		}
		rawLabel, ok := bstr.Until(':')
		if !ok {
			return nil, shapeError("interrupt line without label: %q", sc.Text())
		}
		label := string(bytes.TrimSpace(rawLabel))

		switch {
		case strings.EqualFold(label, ErrLabel), strings.EqualFold(label, MisLabel):
			count, ok := bstr.Counter()
			if !ok {
				return nil, fieldError(label, sc.Text(), nil)
			}
			if strings.EqualFold(label, ErrLabel) {
				ints.Err.Count = count
			} else {
				ints.Mis.Count = count
			}
			continue
		}

		// Now consume the per-CPU counters, followed by the descriptors.
		for idx := range numCPUs {
			count, ok := bstr.Counter()
			if !ok {
				return nil, shapeError("interrupt %s: expected %d CPU counters: %q",
					label, numCPUs, sc.Text())
			}
			counters[idx] = count
		}
		extras := bstr.Fields()
		if len(extras) == 0 {
			return nil, shapeError("interrupt %s: missing descriptors", label)
		}
		stat := NewIntStat(label, counters, extras)
		ints.TotalInt += stat.Total
		ints.Stats = append(ints.Stats, stat)
	}
	if err := sc.Err(); err != nil {
		return nil, sourceError("", err)
	}
	return ints, nil
}

// cpuList returns the list of CPUs that are currently online, according to the
// passed text line that must be in the format of the header line from
// “/proc/interrupts”.
func cpuList(b []byte) CPUList {
	bstr := newBytestring(b)
	numCPUs := bstr.NumFields()
	if numCPUs == 0 {
		return nil
	}
	cpuNums := make(CPUList, numCPUs)
	idx := 0
	for {
		if bstr.SkipSpace() {
			break
		}
		if !bstr.SkipText("CPU") {
			break
		}
		cpuNum, ok := bstr.Uint64()
		if !ok {
			break
		}
		cpuNums[idx] = uint(cpuNum)
		idx++
	}
	if idx != numCPUs {
		return nil
	}
	return cpuNums
}

// IsDelta returns true if these Interrupts are the result of subtracting two
// snapshots.
func (i *Interrupts) IsDelta() bool { return i.delta }

// Taken returns the capture time of a snapshot; it is meaningless for deltas.
func (i *Interrupts) Taken() time.Time {
	sec, frac := math.Modf(i.TsSecs)
	return time.Unix(int64(sec), int64(frac*1e9))
}

var errDeltaSub = errors.New("interrupt deltas cannot be subtracted")

// Sub returns the delta between this (newer) snapshot and the older
// snapshot.
//
// Interrupt lines are matched by their labels, not by their positions. Both
// snapshots must have the same online CPUs and the same set of interrupt
// labels; otherwise, such as after an IRQ got hot-plugged, Sub fails with
// ErrShapeMismatch. The order of the interrupt lines is taken from this
// snapshot.
//
// The per-CPU values of the delta are average interrupts per second over the
// elapsed time between both snapshots, rounded towards negative infinity,
// where the elapsed time is at least MinElapsed. Per-line Count, TotalInt, and
// the ERR and MIS counters are plain differences instead.
func (i *Interrupts) Sub(older *Interrupts) (*Interrupts, error) {
	if i.delta || older.delta {
		return nil, errDeltaSub
	}
	if !slices.Equal(i.CPUs, older.CPUs) {
		return nil, shapeError("online CPUs changed from %v to %v", older.CPUs, i.CPUs)
	}
	if len(i.Stats) != len(older.Stats) {
		return nil, shapeError("number of interrupts changed from %d to %d",
			len(older.Stats), len(i.Stats))
	}
	byLabel := make(map[string]int, len(older.Stats))
	for idx, stat := range older.Stats {
		if _, ok := byLabel[stat.Label]; ok {
			return nil, shapeError("duplicate interrupt %s", stat.Label)
		}
		byLabel[stat.Label] = idx
	}
	elapsed := i.TsSecs - older.TsSecs
	secs := max(elapsed, MinElapsed)
	stats := make([]IntStat, 0, len(i.Stats))
	for _, stat := range i.Stats {
		idx, ok := byLabel[stat.Label]
		if !ok {
			return nil, shapeError("interrupt %s missing in older snapshot", stat.Label)
		}
		delete(byLabel, stat.Label) // catches duplicates in the newer snapshot
		stats = append(stats, stat.rate(older.Stats[idx], secs))
	}
	return &Interrupts{
		TotalInt: i.TotalInt - older.TotalInt,
		Stats:    stats,
		Err:      i.Err.Sub(older.Err),
		Mis:      i.Mis.Sub(older.Mis),
		TsSecs:   elapsed,
		CPUs:     i.CPUs,
		delta:    true,
	}, nil
}

// Sort returns new Interrupts with the interrupt lines sorted by their
// totals, in descending order if reverse is true. Interrupt lines with equal
// totals keep their relative order. If top is positive, only the first
// min(top, len(Stats)) lines are kept.
func (i *Interrupts) Sort(reverse bool, top int) *Interrupts {
	stats := slices.Clone(i.Stats)
	slices.SortStableFunc(stats, func(a, b IntStat) int {
		if reverse {
			return cmp.Compare(b.Total, a.Total)
		}
		return cmp.Compare(a.Total, b.Total)
	})
	if top > 0 && top < len(stats) {
		stats = stats[:top]
	}
	sorted := *i
	sorted.Stats = stats
	return &sorted
}

// Top returns the top busiest interrupt lines; see Sort.
func (i *Interrupts) Top(top int) *Interrupts { return i.Sort(true, top) }

// ListLabels returns the labels of the interrupt lines together with their
// descriptors, in order.
func (i *Interrupts) ListLabels() []IRQLabel {
	labels := make([]IRQLabel, 0, len(i.Stats))
	for _, stat := range i.Stats {
		labels = append(labels, IRQLabel{Label: stat.Label, Extras: stat.ExtraString()})
	}
	return labels
}
