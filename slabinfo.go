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
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
)

// SlabCache describes a single slab cache, as listed in “/proc/slabinfo”.
type SlabCache struct {
	Name         string
	ActiveObjs   int64
	NumObjs      int64
	ObjSize      int64 // in bytes
	ObjPerSlab   int64
	PagesPerSlab int64
	// tunables
	Limit        int64
	BatchCount   int64
	SharedFactor int64
	// slabdata
	ActiveSlabs int64
	NumSlabs    int64
	SharedAvail int64
}

// Names of the slab attributes.
const (
	SlabName        = "name"
	SlabActiveObjs  = "active_objs"
	SlabNumObjs     = "num_objs"
	SlabObjSize     = "objsize"
	SlabActiveSlabs = "active_slabs"
	SlabNumSlabs    = "num_slabs"
	SlabSize        = "size"
)

// Size returns the number of bytes occupied by all objects of this slab cache.
func (s SlabCache) Size() int64 { return s.NumObjs * s.ObjSize }

// Attrs returns the display attributes of this slab cache.
func (s SlabCache) Attrs() []Attr {
	return []Attr{
		{Name: SlabName, Value: StringValue(s.Name)},
		{Name: SlabActiveObjs, Value: IntValue(s.ActiveObjs)},
		{Name: SlabNumObjs, Value: IntValue(s.NumObjs)},
		{Name: SlabObjSize, Value: IntUnitValue(s.ObjSize, "B"), Format: FmtUnit},
		{Name: SlabActiveSlabs, Value: IntValue(s.ActiveSlabs)},
		{Name: SlabNumSlabs, Value: IntValue(s.NumSlabs)},
		{Name: SlabSize, Value: IntUnitValue((s.Size()+1023)/1024, "kB"), Format: FmtUnit},
	}
}

// SlabInfo is a snapshot of “/proc/slabinfo”, with the slab caches in file
// order.
type SlabInfo struct {
	slabs  []SlabCache
	byName map[string]int
}

// Slab sort keys, as in slabtop.
const (
	SortActiveObjs  = 'a'
	SortNumObjs     = 'o'
	SortActiveSlabs = 'v'
	SortNumSlabs    = 'l'
	SortObjSize     = 's'
)

var slabSortKeys = map[byte]func(SlabCache) int64{
	SortActiveObjs:  func(s SlabCache) int64 { return s.ActiveObjs },
	SortNumObjs:     func(s SlabCache) int64 { return s.NumObjs },
	SortActiveSlabs: func(s SlabCache) int64 { return s.ActiveSlabs },
	SortNumSlabs:    func(s SlabCache) int64 { return s.NumSlabs },
	SortObjSize:     func(s SlabCache) int64 { return s.ObjSize },
}

// “name <active_objs> <num_objs> <objsize> <objperslab> <pagesperslab> :
// tunables <limit> <batchcount> <sharedfactor> : slabdata <active_slabs>
// <num_slabs> <sharedavail>”
var slabPattern = regexp.MustCompile(`^(\S+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+` +
	`:\s+tunables\s+(\d+)\s+(\d+)\s+(\d+)\s+` +
	`:\s+slabdata\s+(\d+)\s+(\d+)\s+(\d+)\s*$`)

// SlabInfo returns a new snapshot of “/proc/slabinfo”. Reading it usually
// requires root privileges.
func (p Proc) SlabInfo() (*SlabInfo, error) {
	r, err := p.readReader(slabinfoNode)
	if err != nil {
		return nil, err
	}
	return ParseSlabInfo(r)
}

// ParseSlabInfo returns a slab info snapshot from text in “/proc/slabinfo”
// format. Lines not describing a slab cache, such as the version and column
// headers, are skipped.
func ParseSlabInfo(r io.Reader) (*SlabInfo, error) {
	info := &SlabInfo{byName: map[string]int{}}
	sc := newLineScanner(r)
	for sc.Scan() {
		m := slabPattern.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		var nums [11]int64
		for idx := range nums {
			num, err := strconv.ParseInt(m[2+idx], 10, 64)
			if err != nil {
				return nil, fieldError(m[1], sc.Text(), err)
			}
			nums[idx] = num
		}
		slab := SlabCache{
			Name:         m[1],
			ActiveObjs:   nums[0],
			NumObjs:      nums[1],
			ObjSize:      nums[2],
			ObjPerSlab:   nums[3],
			PagesPerSlab: nums[4],
			Limit:        nums[5],
			BatchCount:   nums[6],
			SharedFactor: nums[7],
			ActiveSlabs:  nums[8],
			NumSlabs:     nums[9],
			SharedAvail:  nums[10],
		}
		if idx, ok := info.byName[slab.Name]; ok {
			info.slabs[idx] = slab
			continue
		}
		info.byName[slab.Name] = len(info.slabs)
		info.slabs = append(info.slabs, slab)
	}
	if err := sc.Err(); err != nil {
		return nil, sourceError("", err)
	}
	return info, nil
}

// Names returns the names of the slab caches in file order.
func (i *SlabInfo) Names() []string {
	names := make([]string, 0, len(i.slabs))
	for _, slab := range i.slabs {
		names = append(names, slab.Name)
	}
	return names
}

// Slabs returns the slab caches in file order.
func (i *SlabInfo) Slabs() []SlabCache { return slices.Clone(i.slabs) }

// Find returns the named slab cache and true, or a zero SlabCache and false.
func (i *SlabInfo) Find(name string) (SlabCache, bool) {
	idx, ok := i.byName[name]
	if !ok {
		return SlabCache{}, false
	}
	return i.slabs[idx], true
}

// Sort returns the slab caches sorted in descending order by the specified
// key, keeping file order for equal keys. A positive top limits the result to
// at most top slab caches.
func (i *SlabInfo) Sort(key byte, top int) ([]SlabCache, error) {
	keyfn, ok := slabSortKeys[key]
	if !ok {
		return nil, fmt.Errorf("invalid slab sort key %q", key)
	}
	sorted := slices.Clone(i.slabs)
	slices.SortStableFunc(sorted, func(a, b SlabCache) int {
		return cmp.Compare(keyfn(b), keyfn(a))
	})
	if top > 0 && top < len(sorted) {
		sorted = sorted[:top]
	}
	return sorted, nil
}
