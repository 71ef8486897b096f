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

package cli

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	"github.com/thediveo/xproc"
	"github.com/thediveo/xproc/internal/render"
)

// memory samples the default memory attributes plus any extra ones.
func memory(ctx context.Context, e *env) error {
	if e.opts.List {
		mem, err := e.proc.MemoryInfo()
		if err != nil {
			return err
		}
		return render.Names(e.stdout, mem.Names())
	}
	requested := columns(xproc.DefaultMemoryAttrs, e.opts.Extra)
	cols := render.NewColumns(e.stdout)
	err := e.loop().Run(ctx, func(n int, header bool) error {
		mem, err := e.proc.MemoryInfo()
		if err != nil {
			return err
		}
		if n == 0 {
			warnUnknown(logr.FromContextOrDiscard(ctx), mem.Names(), e.opts.Extra)
		}
		attrs := mem.Attrs(time.Now(), requested)
		if header {
			if err := cols.Header(attrs); err != nil {
				return err
			}
		}
		return cols.Row(attrs)
	})
	return finish(ctx, e, err)
}

// vmstat samples the vmstat columns plus any extra memory attributes. The
// first sample shows averages since boot, the following ones the averages
// over the interval.
func vmstat(ctx context.Context, e *env) error {
	if e.opts.List {
		mem, err := e.proc.MemoryInfo()
		if err != nil {
			return err
		}
		return render.Names(e.stdout, columns(xproc.VMStatNames(), mem.Names()))
	}
	requested := columns(xproc.VMStatNames(), e.opts.Extra)
	cols := render.NewColumns(e.stdout)
	var prev *xproc.SystemStat
	err := e.loop().Run(ctx, func(n int, header bool) error {
		stat, err := e.proc.SystemStat()
		if err != nil {
			return err
		}
		mem, err := e.proc.MemoryInfo()
		if err != nil {
			return err
		}
		if n == 0 {
			warnUnknown(logr.FromContextOrDiscard(ctx),
				columns(xproc.VMStatNames(), mem.Names()), e.opts.Extra)
		}
		attrs := xproc.VMStatAttrs(stat.Taken, &xproc.VMStatSample{
			Prev: prev,
			Cur:  stat,
			Mem:  mem,
		}, requested)
		prev = stat
		if header {
			if err := cols.Header(attrs); err != nil {
				return err
			}
		}
		return cols.Row(attrs)
	})
	return finish(ctx, e, err)
}

// load samples the load average.
func load(ctx context.Context, e *env) error {
	if e.opts.List {
		names := []string{}
		for _, attr := range (xproc.Loadavg{}).Attrs(time.Now())[1:] {
			names = append(names, attr.Name)
		}
		return render.Names(e.stdout, names)
	}
	cols := render.NewColumns(e.stdout)
	err := e.loop().Run(ctx, func(_ int, header bool) error {
		avg, err := e.proc.Loadavg()
		if err != nil {
			return err
		}
		attrs := avg.Attrs(time.Now())
		if header {
			if err := cols.Header(attrs); err != nil {
				return err
			}
		}
		return cols.Row(attrs)
	})
	return finish(ctx, e, err)
}

// interrupts periodically shows the busiest interrupts over the last
// interval. When the set of interrupts changes between two samples, such as
// after CPU hot-plugging, the affected interval is skipped and the newer
// sample becomes the new baseline.
func interrupts(ctx context.Context, e *env) error {
	log := logr.FromContextOrDiscard(ctx)
	prev, err := e.proc.Interrupts()
	if err != nil {
		return err
	}
	if e.opts.List {
		var details map[uint]xproc.IRQDetails
		if e.opts.Details {
			details = e.proc.IRQDetailsByNum()
		}
		return render.IRQLabels(e.stdout, prev.ListLabels(), details)
	}
	loop := e.loop()
	loop.SleepFirst = true
	err = loop.Run(ctx, func(int, bool) error {
		cur, err := e.proc.Interrupts()
		if err != nil {
			return err
		}
		delta, err := cur.Sub(prev)
		prev = cur
		if errors.Is(err, xproc.ErrShapeMismatch) {
			log.V(1).Info("re-baselining interrupts", "error", err.Error())
			return nil
		}
		if err != nil {
			return err
		}
		return render.TopInterrupts(e.stdout, delta, e.opts.Top, max(e.opts.Interval, 1), cur.Taken())
	})
	return finish(ctx, e, err)
}
