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
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Names of the load average attributes.
const (
	Load1Min  = "LOAD_1_MIN"
	Load5Min  = "LOAD_5_MIN"
	Load15Min = "LOAD_15_MIN"
	NrRunning = "NR_RUNNING"
	NrTotal   = "NR_TOTAL"
	LastPID   = "LAST_PID"
)

// Loadavg is a snapshot of “/proc/loadavg”.
type Loadavg struct {
	Load1     float64
	Load5     float64
	Load15    float64
	NrRunning int64 // currently runnable scheduling entities
	NrTotal   int64 // currently existing scheduling entities
	LastPID   int64 // most recently created PID
}

// “0.24 0.16 0.06 1/296 1968353”
var loadavgPattern = regexp.MustCompile(`^([0-9]+\.[0-9]+)\s+([0-9]+\.[0-9]+)\s+([0-9]+\.[0-9]+)\s+` +
	`([0-9]+)/([0-9]+)\s+([0-9]+)\s*$`)

// Loadavg returns a new snapshot of “/proc/loadavg”.
func (p Proc) Loadavg() (Loadavg, error) {
	contents, err := p.readFile(loadavgNode)
	if err != nil {
		return Loadavg{}, err
	}
	return ParseLoadavg(string(contents))
}

// ParseLoadavg parses a line in “/proc/loadavg” format.
func ParseLoadavg(line string) (Loadavg, error) {
	line, _, _ = strings.Cut(line, "\n")
	m := loadavgPattern.FindStringSubmatch(line)
	if m == nil {
		return Loadavg{}, fieldError(loadavgNode, line, nil)
	}
	// The pattern guarantees parsable numbers, except for overly large ones.
	var l Loadavg
	var err error
	floats := []*float64{&l.Load1, &l.Load5, &l.Load15}
	for idx, f := range floats {
		if *f, err = strconv.ParseFloat(m[1+idx], 64); err != nil {
			return Loadavg{}, fieldError(loadavgNode, line, err)
		}
	}
	ints := []*int64{&l.NrRunning, &l.NrTotal, &l.LastPID}
	for idx, i := range ints {
		if *i, err = strconv.ParseInt(m[4+idx], 10, 64); err != nil {
			return Loadavg{}, fieldError(loadavgNode, line, err)
		}
	}
	return l, nil
}

// Attrs returns the load average attributes, prefixed by the capture time
// attribute.
func (l Loadavg) Attrs(now time.Time) []Attr {
	return []Attr{
		CaptureTimeAttr(now),
		{Name: Load1Min, Value: FloatValue(l.Load1)},
		{Name: Load5Min, Value: FloatValue(l.Load5)},
		{Name: Load15Min, Value: FloatValue(l.Load15)},
		{Name: NrRunning, Value: IntValue(l.NrRunning)},
		{Name: NrTotal, Value: IntValue(l.NrTotal)},
		{Name: LastPID, Value: IntValue(l.LastPID)},
	}
}
