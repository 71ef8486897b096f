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

package poll

import (
	"context"
	"time"

	"github.com/go-logr/logr"
)

// HeaderIntervals is the number of intervals after which the column header
// gets printed again.
const HeaderIntervals = 10

// Loop describes a polling loop.
type Loop struct {
	Interval    int  // seconds between ticks; values below 1 mean 1
	Count       int  // number of ticks; 0 or less means until cancelled
	HeaderEvery int  // ticks between headers; 0 or less means HeaderIntervals×Interval
	SleepFirst  bool // sleep before each tick instead of after it

	second time.Duration // length of a second, shortened in tests
}

// Run calls tick for each tick, passing the zero-based tick number and
// whether a column header is due. A header is due on the first tick and then
// every HeaderEvery ticks. Run returns the first error returned by tick. It
// returns nil when all ticks are done, or when ctx gets cancelled in between
// ticks; the sleep between ticks is cancellable, whereas an ongoing tick is
// never interrupted.
func (l Loop) Run(ctx context.Context, tick func(n int, header bool) error) error {
	log := logr.FromContextOrDiscard(ctx)
	interval := max(l.Interval, 1)
	every := l.HeaderEvery
	if every <= 0 {
		every = HeaderIntervals * interval
	}
	second := l.second
	if second <= 0 {
		second = time.Second
	}
	sleep := time.Duration(interval) * second

	for n := 0; l.Count <= 0 || n < l.Count; n++ {
		if l.SleepFirst && !wait(ctx, sleep) {
			log.V(1).Info("polling cancelled", "ticks", n)
			return nil
		}
		if ctx.Err() != nil {
			log.V(1).Info("polling cancelled", "ticks", n)
			return nil
		}
		log.V(2).Info("tick", "n", n)
		if err := tick(n, n%every == 0); err != nil {
			return err
		}
		if l.SleepFirst || (l.Count > 0 && n == l.Count-1) {
			continue
		}
		if !wait(ctx, sleep) {
			log.V(1).Info("polling cancelled", "ticks", n+1)
			return nil
		}
	}
	return nil
}

// wait sleeps for the specified duration, returning false if ctx gets
// cancelled before.
func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
