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
	"cmp"
	"io"
	"slices"
	"strconv"
	"strings"
)

// VmallocArea describes a single vmalloc'ed area, as listed in
// “/proc/vmallocinfo”.
type VmallocArea struct {
	Start  uint64
	End    uint64
	Size   int64          // in bytes, including the guard page
	Caller string         // allocating function, or "" if not given
	Pages  int64          // number of pages, if known
	Phys   uint64         // physical address of ioremap'ed areas
	Nodes  map[uint]int64 // pages per NUMA node
	Flags  []string       // ioremap, vmalloc, vmap, ...
}

// HasFlag returns true if the area carries the specified flag.
func (a VmallocArea) HasFlag(flag string) bool { return slices.Contains(a.Flags, flag) }

// vmallocFlags are the boolean flags an area may carry.
var vmallocFlags = []string{
	"ioremap", "vmalloc", "vmap", "user", "vpages", "unpurged", "vm_map_ram", "dma-coherent",
}

// vmallocMatchers classify the tokens following the size of an area, in order.
// A matcher returns true if it consumed the token.
var vmallocMatchers = []func(tok string, a *VmallocArea) bool{
	func(tok string, a *VmallocArea) bool {
		pages, ok := strings.CutPrefix(tok, "pages=")
		if !ok {
			return false
		}
		n, err := strconv.ParseInt(pages, 10, 64)
		if err != nil {
			return false
		}
		a.Pages = n
		return true
	},
	func(tok string, a *VmallocArea) bool {
		phys, ok := strings.CutPrefix(tok, "phys=")
		if !ok {
			return false
		}
		addr, err := strconv.ParseUint(phys, 0, 64)
		if err != nil {
			if addr, err = strconv.ParseUint(phys, 16, 64); err != nil {
				return false
			}
		}
		a.Phys = addr
		return true
	},
	func(tok string, a *VmallocArea) bool {
		node, pages, ok := strings.Cut(tok, "=")
		if !ok || len(node) < 2 || node[0] != 'N' {
			return false
		}
		num, err := strconv.ParseUint(node[1:], 10, 32)
		if err != nil {
			return false
		}
		n, err := strconv.ParseInt(pages, 10, 64)
		if err != nil {
			return false
		}
		if a.Nodes == nil {
			a.Nodes = map[uint]int64{}
		}
		a.Nodes[uint(num)] = n
		return true
	},
	func(tok string, a *VmallocArea) bool {
		if !slices.Contains(vmallocFlags, tok) {
			return false
		}
		a.Flags = append(a.Flags, tok)
		return true
	},
}

// VmallocInfo is a snapshot of “/proc/vmallocinfo”, with the areas in file
// order.
type VmallocInfo struct {
	Areas []VmallocArea
}

// VmallocInfo returns a new snapshot of “/proc/vmallocinfo”. Without root
// privileges the kernel shows all addresses as zero.
func (p Proc) VmallocInfo() (*VmallocInfo, error) {
	r, err := p.readReader(vmallocinfoNode)
	if err != nil {
		return nil, err
	}
	return ParseVmallocInfo(r)
}

// ParseVmallocInfo returns a vmalloc snapshot from text in
// “/proc/vmallocinfo” format: “start-end size [caller] [tokens...]”. The
// tokens after the size are classified into pages, physical address, per-node
// pages, and flags; the first unclassified token directly following the size
// is the caller, any other unclassified tokens are ignored.
func ParseVmallocInfo(r io.Reader) (*VmallocInfo, error) {
	info := &VmallocInfo{}
	sc := newLineScanner(r)
	for sc.Scan() {
		fields := newBytestring(sc.Bytes()).Fields()
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, shapeError("%s: expected address range and size: %q",
				vmallocinfoNode, sc.Text())
		}
		var area VmallocArea
		start, end, ok := strings.Cut(fields[0], "-")
		if !ok {
			return nil, fieldError("range", fields[0], nil)
		}
		var err error
		if area.Start, err = strconv.ParseUint(start, 0, 64); err != nil {
			return nil, fieldError("range", fields[0], err)
		}
		if area.End, err = strconv.ParseUint(end, 0, 64); err != nil {
			return nil, fieldError("range", fields[0], err)
		}
		if area.Size, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
			return nil, fieldError("size", fields[1], err)
		}
	nextToken:
		for idx, tok := range fields[2:] {
			for _, match := range vmallocMatchers {
				if match(tok, &area) {
					continue nextToken
				}
			}
			if idx == 0 {
				area.Caller = tok
			}
		}
		info.Areas = append(info.Areas, area)
	}
	if err := sc.Err(); err != nil {
		return nil, sourceError("", err)
	}
	return info, nil
}

// VmallocSummary sums up the vmalloc areas.
type VmallocSummary struct {
	Areas  int
	Bytes  int64
	ByFlag map[string]int64 // bytes per flag
}

// Summary returns the number of areas and their total size, as well as the
// total size per flag.
func (i *VmallocInfo) Summary() VmallocSummary {
	sum := VmallocSummary{ByFlag: map[string]int64{}}
	for _, area := range i.Areas {
		sum.Areas++
		sum.Bytes += area.Size
		for _, flag := range area.Flags {
			sum.ByFlag[flag] += area.Size
		}
	}
	return sum
}

// CallerUsage is the vmalloc usage attributed to a single caller.
type CallerUsage struct {
	Caller string
	Areas  int
	Bytes  int64
}

// Attrs returns the display attributes of this caller usage.
func (c CallerUsage) Attrs() []Attr {
	return []Attr{
		{Name: "caller", Value: StringValue(c.Caller)},
		{Name: "areas", Value: IntValue(int64(c.Areas))},
		{Name: "size", Value: IntUnitValue((c.Bytes+1023)/1024, "kB"), Format: FmtUnit},
	}
}

// TopCallers returns the callers in descending order of their total area
// sizes, keeping the order of first appearance for equal sizes. Areas without
// caller are attributed to the empty caller "". A positive top limits the
// result to at most top callers.
func (i *VmallocInfo) TopCallers(top int) []CallerUsage {
	usages := []CallerUsage{}
	byCaller := map[string]int{}
	for _, area := range i.Areas {
		idx, ok := byCaller[area.Caller]
		if !ok {
			idx = len(usages)
			byCaller[area.Caller] = idx
			usages = append(usages, CallerUsage{Caller: area.Caller})
		}
		usages[idx].Areas++
		usages[idx].Bytes += area.Size
	}
	slices.SortStableFunc(usages, func(a, b CallerUsage) int {
		return cmp.Compare(b.Bytes, a.Bytes)
	})
	if top > 0 && top < len(usages) {
		usages = usages[:top]
	}
	return usages
}
