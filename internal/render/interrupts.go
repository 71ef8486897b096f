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

package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/thediveo/xproc"
)

// Column names of the interrupt table.
const (
	DeviceColumn = "DEVICE(IRQ)"
	RateColumn   = "IRQs/SECOND"
	TotalColumn  = "TOTAL"
)

// TopInterrupts prints the top busiest interrupt lines of an interrupt delta:
// first the current time, then a column header, and finally a line per
// interrupt, followed by an empty line. The device column shows the
// descriptors and label of an interrupt, and is as wide as the widest device
// of the lines shown. The rate column shows the summed up per-CPU rates. For
// intervals longer than a second there is an additional column with the total
// number of interrupts over the whole interval.
func TopInterrupts(w io.Writer, delta *xproc.Interrupts, top int, interval int, now time.Time) error {
	stats := delta.Top(top).Stats
	devices := make([]string, 0, len(stats))
	devWidth := max(MinWidth, len(DeviceColumn))
	for _, stat := range stats {
		device := stat.ExtraString() + " (" + stat.Label + ")"
		devices = append(devices, device)
		devWidth = max(devWidth, len(device))
	}
	numWidth := len(RateColumn)
	withTotal := interval > 1
	termWidth := terminalWidth(w)
	if termWidth > 0 {
		lineWidth := devWidth + 1 + numWidth
		if withTotal {
			lineWidth += 1 + numWidth
		}
		if excess := lineWidth - termWidth; excess > 0 {
			devWidth = max(devWidth-excess, MinWidth)
		}
	}

	var b strings.Builder
	fmt.Fprintln(&b, pad(now.Format(time.TimeOnly), devWidth))
	header := pad(DeviceColumn, devWidth) + " " + pad(RateColumn, numWidth)
	if withTotal {
		header += " " + pad(TotalColumn, numWidth)
	}
	if termWidth > 0 {
		header = headerStyle.Render(header)
	}
	fmt.Fprintln(&b, header)
	for idx, stat := range stats {
		b.WriteString(pad(shorten(devices[idx], devWidth), devWidth))
		b.WriteByte(' ')
		b.WriteString(pad(fmt.Sprint(stat.Total), numWidth))
		if withTotal {
			b.WriteByte(' ')
			b.WriteString(pad(fmt.Sprint(stat.Count), numWidth))
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

const ellipsis = "..."

// shorten cuts s from the left to fit width, keeping the trailing label.
func shorten(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= len(ellipsis) {
		return s[len(s)-width:]
	}
	return ellipsis + s[len(s)-width+len(ellipsis):]
}

// IRQLabels prints the interrupt labels together with their descriptors, one
// per line. If details are passed, numbered IRQs having details additionally
// get their effective CPU affinities and actions printed.
func IRQLabels(w io.Writer, labels []xproc.IRQLabel, details map[uint]xproc.IRQDetails) error {
	labelWidth := 0
	for _, l := range labels {
		labelWidth = max(labelWidth, len(l.Label))
	}
	var b strings.Builder
	for _, l := range labels {
		b.WriteString(pad(l.Label, labelWidth))
		b.WriteString(": ")
		b.WriteString(l.Extras)
		if details != nil {
			if d, ok := irqDetails(l.Label, details); ok {
				fmt.Fprintf(&b, " [CPUs %s] [%s]", d.Affinities, d.Actions)
			}
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func irqDetails(label string, details map[uint]xproc.IRQDetails) (xproc.IRQDetails, bool) {
	num, ok := xproc.IntStat{Label: label}.IRQ()
	if !ok {
		return xproc.IRQDetails{}, false
	}
	d, ok := details[num]
	return d, ok
}

// Names prints the passed names one per line, in the order passed.
func Names(w io.Writer, names []string) error {
	if len(names) == 0 {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(names, "\n")+"\n")
	return err
}
