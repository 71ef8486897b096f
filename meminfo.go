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
	"time"
)

// Names of the fields in “/proc/meminfo”.
const (
	MemTotal          = "MemTotal"
	MemFree           = "MemFree"
	MemAvailable      = "MemAvailable"
	Buffers           = "Buffers"
	Cached            = "Cached"
	SwapCached        = "SwapCached"
	Active            = "Active"
	Inactive          = "Inactive"
	ActiveAnon        = "Active(anon)"
	InactiveAnon      = "Inactive(anon)"
	ActiveFile        = "Active(file)"
	InactiveFile      = "Inactive(file)"
	Mlocked           = "Mlocked"
	SwapTotal         = "SwapTotal"
	SwapFree          = "SwapFree"
	Dirty             = "Dirty"
	Writeback         = "Writeback"
	AnonPages         = "AnonPages"
	Mapped            = "Mapped"
	Shmem             = "Shmem"
	KReclaimable      = "KReclaimable"
	Slab              = "Slab"
	SReclaimable      = "SReclaimable"
	SUnreclaim        = "SUnreclaim"
	KernelStack       = "KernelStack"
	PageTables        = "PageTables"
	NFSUnstable       = "NFS_Unstable"
	Bounce            = "Bounce"
	WritebackTmp      = "WritebackTmp"
	CommitLimit       = "CommitLimit"
	CommittedAS       = "Committed_AS"
	VmallocTotal      = "VmallocTotal"
	VmallocUsed       = "VmallocUsed"
	VmallocChunk      = "VmallocChunk"
	HardwareCorrupted = "HardwareCorrupted"
	AnonHugePages     = "AnonHugePages"
	ShmemHugePages    = "ShmemHugePages"
	ShmemPmdMapped    = "ShmemPmdMapped"
	HugePagesTotal    = "HugePages_Total"
	HugePagesFree     = "HugePages_Free"
	HugePagesRsvd     = "HugePages_Rsvd"
	HugePagesSurp     = "HugePages_Surp"
	Hugepagesize      = "Hugepagesize"
	Hugetlb           = "Hugetlb"
	DirectMap4k       = "DirectMap4k"
	DirectMap2M       = "DirectMap2M"
	DirectMap1G       = "DirectMap1G"
)

// Names of the memory attributes synthesized from the kernel fields.
const (
	KernelMem = "KERNEL" // memory used by the kernel, in kB
	UserMem   = "USER"   // memory used by user processes, in kB
)

// DefaultMemoryAttrs lists the attributes shown when no particular memory
// attributes have been requested.
var DefaultMemoryAttrs = []string{KernelMem, UserMem, MemFree, MemTotal}

var meminfoFields = fieldTable{
	MemTotal:          intUnitField,
	MemFree:           intUnitField,
	MemAvailable:      intUnitField,
	Buffers:           intUnitField,
	Cached:            intUnitField,
	SwapCached:        intUnitField,
	Active:            intUnitField,
	Inactive:          intUnitField,
	ActiveAnon:        intUnitField,
	InactiveAnon:      intUnitField,
	ActiveFile:        intUnitField,
	InactiveFile:      intUnitField,
	Mlocked:           intUnitField,
	SwapTotal:         intUnitField,
	SwapFree:          intUnitField,
	Dirty:             intUnitField,
	Writeback:         intUnitField,
	AnonPages:         intUnitField,
	Mapped:            intUnitField,
	Shmem:             intUnitField,
	KReclaimable:      intUnitField,
	Slab:              intUnitField,
	SReclaimable:      intUnitField,
	SUnreclaim:        intUnitField,
	KernelStack:       intUnitField,
	PageTables:        intUnitField,
	NFSUnstable:       intUnitField,
	Bounce:            intUnitField,
	WritebackTmp:      intUnitField,
	CommitLimit:       intUnitField,
	CommittedAS:       intUnitField,
	VmallocTotal:      intUnitField,
	VmallocUsed:       intUnitField,
	VmallocChunk:      intUnitField,
	HardwareCorrupted: intUnitField,
	AnonHugePages:     intUnitField,
	ShmemHugePages:    intUnitField,
	ShmemPmdMapped:    intUnitField,
	HugePagesTotal:    intField,
	HugePagesFree:     intField,
	HugePagesRsvd:     intField,
	HugePagesSurp:     intField,
	Hugepagesize:      intUnitField,
	Hugetlb:           intUnitField,
	DirectMap4k:       intUnitField,
	DirectMap2M:       intUnitField,
	DirectMap1G:       intUnitField,
}

// kernelMemFields make up the memory used by the kernel itself. Memory
// allocated via alloc_pages() doesn't show up in /proc/meminfo at all, so the
// sum is a lower bound.
var kernelMemFields = []string{Slab, VmallocUsed, PageTables, KernelStack, HardwareCorrupted, Bounce}

// userMemFields make up the memory used by user processes, when looked at
// from the page cache perspective; huge pages are added separately. This is
// accurate only as long as SwapCached is zero.
var userMemFields = []string{Cached, AnonPages, Buffers}

// MemoryInfo is a snapshot of “/proc/meminfo”.
type MemoryInfo struct {
	attrs *Attrs
}

// MemoryInfo returns a new snapshot of “/proc/meminfo”.
func (p Proc) MemoryInfo() (*MemoryInfo, error) {
	r, err := p.readReader(meminfoNode)
	if err != nil {
		return nil, err
	}
	return ParseMemoryInfo(r)
}

// ParseMemoryInfo returns a memory info snapshot from text in “/proc/meminfo”
// format, including the synthesized KERNEL and USER attributes.
func ParseMemoryInfo(r io.Reader) (*MemoryInfo, error) {
	attrs, err := parseColonFields(r, meminfoFields)
	if err != nil {
		return nil, err
	}
	m := &MemoryInfo{attrs: attrs}
	attrs.add(Attr{Name: KernelMem, Value: IntUnitValue(m.sum(kernelMemFields), "kB"), Format: FmtUnit})
	user := m.sum(userMemFields) + m.IntValue(HugePagesTotal)*m.IntValue(Hugepagesize)
	attrs.add(Attr{Name: UserMem, Value: IntUnitValue(user, "kB"), Format: FmtUnit})
	return m, nil
}

func (m *MemoryInfo) sum(names []string) (total int64) {
	for _, name := range names {
		total += m.IntValue(name)
	}
	return
}

// Get returns the named attribute, or EmptyAttr if not present.
func (m *MemoryInfo) Get(name string) Attr { return m.attrs.Get(name) }

// IntValue returns the integer value of the named attribute, or 0 if it is
// either not present or not an integer.
func (m *MemoryInfo) IntValue(name string) int64 {
	i, _ := m.attrs.Get(name).Value.Int()
	return i
}

// Names returns the names of the available attributes in file order, followed
// by the synthesized attributes.
func (m *MemoryInfo) Names() []string { return m.attrs.Names() }

// KernelUsed returns the memory used by the kernel.
func (m *MemoryInfo) KernelUsed() Value { return m.attrs.Get(KernelMem).Value }

// UserUsed returns the memory used by user processes.
func (m *MemoryInfo) UserUsed() Value { return m.attrs.Get(UserMem).Value }

// Total returns the total usable RAM, or 0 kB if unknown.
func (m *MemoryInfo) Total() Value { return m.unitValue(MemTotal) }

// Free returns the unused RAM, or 0 kB if unknown.
func (m *MemoryInfo) Free() Value { return m.unitValue(MemFree) }

func (m *MemoryInfo) unitValue(name string) Value {
	v := m.attrs.Get(name).Value
	if v.Kind() != KindIntUnit {
		return IntUnitValue(0, "kB")
	}
	return v
}

// Attrs returns the requested attributes prefixed by the capture time
// attribute, leaving out any attributes not present. If no attributes are
// requested, then DefaultMemoryAttrs are returned.
func (m *MemoryInfo) Attrs(now time.Time, requested []string) []Attr {
	if len(requested) == 0 {
		requested = DefaultMemoryAttrs
	}
	return m.attrs.Select(now, requested)
}
