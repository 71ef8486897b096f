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
	"strconv"
)

// Names of the cgroup v1 controllers (subsystems).
const (
	CPUSet    = "cpuset"
	CPU       = "cpu"
	CPUAcct   = "cpuacct"
	BlkIO     = "blkio"
	Memory    = "memory"
	Devices   = "devices"
	Freezer   = "freezer"
	NetCls    = "net_cls"
	PerfEvent = "perf_event"
	NetPrio   = "net_prio"
	HugeTLB   = "hugetlb"
	PIDs      = "pids"
	RDMA      = "rdma"
	Misc      = "misc"
)

// SubSys describes a cgroup controller, as listed in “/proc/cgroups”.
type SubSys struct {
	Name       string
	Hierarchy  int64 // hierarchy ID; 0 for cgroup v2 or when unmounted
	NumCGroups int64
	Enabled    bool
}

// EmptySubSys is returned from lookups of controllers that are not present.
var EmptySubSys = SubSys{Name: "EmptySubSys", Hierarchy: -1, NumCGroups: -1, Enabled: false}

// IsEmpty returns true if this is the EmptySubSys sentinel.
func (s SubSys) IsEmpty() bool { return s == EmptySubSys }

// Attrs returns the display attributes of this controller.
func (s SubSys) Attrs() []Attr {
	enabled := int64(0)
	if s.Enabled {
		enabled = 1
	}
	return []Attr{
		{Name: "subsys_name", Value: StringValue(s.Name)},
		{Name: "hierarchy", Value: IntValue(s.Hierarchy)},
		{Name: "num_cgroups", Value: IntValue(s.NumCGroups)},
		{Name: "enabled", Value: IntValue(enabled)},
	}
}

// CGroups is a snapshot of “/proc/cgroups”, with the controllers in file
// order.
type CGroups struct {
	subsys []SubSys
	byName map[string]int
}

// CGroups returns a new snapshot of “/proc/cgroups”.
func (p Proc) CGroups() (*CGroups, error) {
	r, err := p.readReader(cgroupsNode)
	if err != nil {
		return nil, err
	}
	return ParseCGroups(r)
}

// ParseCGroups returns a controller snapshot from text in “/proc/cgroups”
// format. Comment lines starting with “#” as well as empty lines are skipped.
// All other lines must consist of the four fields name, hierarchy ID, number
// of cgroups, and enabled.
func ParseCGroups(r io.Reader) (*CGroups, error) {
	cgs := &CGroups{byName: map[string]int{}}
	sc := newLineScanner(r)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) > 0 && line[0] == '#' {
			continue
		}
		fields := newBytestring(line).Fields()
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 4 {
			return nil, shapeError("%s: expected 4 fields, got %d", cgroupsNode, len(fields))
		}
		var nums [3]int64
		for idx := range nums {
			num, err := strconv.ParseInt(fields[1+idx], 10, 64)
			if err != nil {
				return nil, fieldError(fields[0], sc.Text(), err)
			}
			nums[idx] = num
		}
		subsys := SubSys{
			Name:       fields[0],
			Hierarchy:  nums[0],
			NumCGroups: nums[1],
			Enabled:    nums[2] == 1,
		}
		if idx, ok := cgs.byName[subsys.Name]; ok {
			cgs.subsys[idx] = subsys
			continue
		}
		cgs.byName[subsys.Name] = len(cgs.subsys)
		cgs.subsys = append(cgs.subsys, subsys)
	}
	if err := sc.Err(); err != nil {
		return nil, sourceError("", err)
	}
	return cgs, nil
}

// Get returns the named controller, or EmptySubSys if not present.
func (c *CGroups) Get(name string) SubSys {
	idx, ok := c.byName[name]
	if !ok {
		return EmptySubSys
	}
	return c.subsys[idx]
}

// Names returns the controller names in file order.
func (c *CGroups) Names() []string {
	names := make([]string, 0, len(c.subsys))
	for _, s := range c.subsys {
		names = append(names, s.Name)
	}
	return names
}

// SubSystems returns the controllers in file order.
func (c *CGroups) SubSystems() []SubSys {
	return append([]SubSys(nil), c.subsys...)
}
