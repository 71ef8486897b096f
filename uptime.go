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
	"time"
)

// Names of the uptime attributes.
const (
	UptimeAttr = "UPTIME"
	IdleAttr   = "IDLE"
	BootedAttr = "BOOTED"
)

// Uptime is a snapshot of “/proc/uptime”.
type Uptime struct {
	SinceBoot float64 // seconds since boot, including suspend.
	Idle      float64 // seconds spent idle, summed over all CPUs.
}

// Uptime returns a new snapshot of “/proc/uptime”.
func (p Proc) Uptime() (Uptime, error) {
	contents, err := p.readFile(uptimeNode)
	if err != nil {
		return Uptime{}, err
	}
	return ParseUptime(string(contents))
}

// ParseUptime parses a line in “/proc/uptime” format.
func ParseUptime(line string) (Uptime, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Uptime{}, fieldError(uptimeNode, line, nil)
	}
	since, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Uptime{}, fieldError(uptimeNode, line, err)
	}
	idle, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Uptime{}, fieldError(uptimeNode, line, err)
	}
	return Uptime{SinceBoot: since, Idle: idle}, nil
}

// Duration returns the time since boot.
func (u Uptime) Duration() time.Duration {
	return time.Duration(u.SinceBoot * float64(time.Second))
}

// Attrs returns the uptime attributes, prefixed by the capture time
// attribute. BOOTED is the wall clock time of the boot, relative to now.
func (u Uptime) Attrs(now time.Time) []Attr {
	return []Attr{
		CaptureTimeAttr(now),
		{Name: UptimeAttr, Value: StringValue(u.Duration().Truncate(time.Second).String())},
		{Name: IdleAttr, Value: FloatValue(u.Idle)},
		{Name: BootedAttr, Value: StringValue(now.Add(-u.Duration()).Format(time.DateTime))},
	}
}
