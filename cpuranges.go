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
	"strconv"
	"strings"

	"github.com/thediveo/faf"
)

// CPURanges is a list of [from...to] ranges of CPU (or NUMA node) numbers, as
// found in “Cpus_allowed_list” and “effective_affinity_list”. Numbers start
// from zero.
type CPURanges [][2]uint

// ParseCPURanges returns the CPURanges from text in “0-3,8,10-11” format.
// Parsing stops at the first malformed element, returning only the ranges
// parsed so far.
func ParseCPURanges(s string) CPURanges {
	return cpuRanges([]byte(strings.TrimSpace(s)))
}

// cpuRanges returns the CPURanges list from the given byte slice. Passing a
// byte slice instead of a string avoids costly conversions from mutable byte
// slices to immutable strings when reading pseudo files.
func cpuRanges(b []byte) CPURanges {
	bstr := faf.NewBytestring(b)
	// nota bene: not using make(...) saves us somehow 3 allocs overall and
	// decreases memory consumption. compiler optimization??
	cpus := CPURanges{}
	for {
		if bstr.EOL() {
			break
		}
		from, ok := bstr.Uint64()
		if !ok {
			break
		}
		if bstr.EOL() {
			cpus = append(cpus, [2]uint{uint(from), uint(from)})
			break
		}
		ch, _ := bstr.Next()
		switch ch {
		case ',':
			cpus = append(cpus, [2]uint{uint(from), uint(from)})
			continue
		case '-':
			to, ok := bstr.Uint64()
			if !ok {
				return cpus
			}
			cpus = append(cpus, [2]uint{uint(from), uint(to)})
			if bstr.EOL() {
				return cpus
			}
			ch, ok := bstr.Next()
			if !ok || ch != ',' {
				return cpus
			}
			continue
		}
		break
	}
	return cpus
}

// Count returns the number of CPUs in the ranges.
func (r CPURanges) Count() (n int) {
	for _, rng := range r {
		if rng[1] >= rng[0] {
			n += int(rng[1]-rng[0]) + 1
		}
	}
	return
}

// Contains returns true if the specified CPU number is in one of the ranges.
func (r CPURanges) Contains(cpu uint) bool {
	for _, rng := range r {
		if cpu >= rng[0] && cpu <= rng[1] {
			return true
		}
	}
	return false
}

// String returns the ranges in “0-3,8” format.
func (r CPURanges) String() string {
	var b strings.Builder
	for idx, rng := range r {
		if idx > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(rng[0]), 10))
		if rng[1] != rng[0] {
			b.WriteByte('-')
			b.WriteString(strconv.FormatUint(uint64(rng[1]), 10))
		}
	}
	return b.String()
}
