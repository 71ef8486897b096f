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
	"iter"
	"sync"

	"github.com/thediveo/faf"
)

// IRQDetails tells which handlers (actions) are registered for a numbered IRQ
// and which CPUs currently service it.
type IRQDetails struct {
	Num        uint      // IRQ number
	Actions    string    // handler names, separated by commas
	Affinities CPURanges // CPUs the IRQ is effectively routed to
}

const (
	syskernelirqPath = "/sys/kernel/irq/"
	procirqPath      = "/proc/irq/"

	actionsNode           = "/actions"
	effectiveAffinityNode = "/effective_affinity_list"
)

// detailWorkers is the size of the worker pool reading IRQ details.
const detailWorkers = 16

// IRQDetails returns an iterator over the details of the numbered IRQs having
// at least one action and a non-empty effective affinity. IRQs are produced in
// no particular order.
//
// Each IRQ needs two reads, “/sys/kernel/irq/N/actions” and
// “/proc/irq/N/effective_affinity_list”, and the kernel renders each of these
// tiny files individually. On systems with hundreds of IRQs the reads are
// thus spread over a pool of workers.
func (p Proc) IRQDetails() iter.Seq[IRQDetails] {
	return allIRQDetails(p.root)
}

// IRQDetailsByNum returns the IRQ details indexed by IRQ number.
func (p Proc) IRQDetailsByNum() map[uint]IRQDetails {
	details := map[uint]IRQDetails{}
	for d := range p.IRQDetails() {
		details[d.Num] = d
	}
	return details
}

// allIRQDetails returns an iterator over the details of the IRQs found below
// the specified filesystem root.
//
// A feeder goroutine lists the IRQ directories and hands their names to a
// pool of workers, which in turn post the details they read to the iterating
// goroutine. Stopping the iteration early closes the quit channel so that
// feeder and workers wind down without blocking.
func allIRQDetails(root string) iter.Seq[IRQDetails] {
	return func(yield func(IRQDetails) bool) {
		quit := make(chan struct{})
		irqs := make(chan string, detailWorkers)
		results := make(chan IRQDetails, detailWorkers)

		var workers sync.WaitGroup
		workers.Add(detailWorkers)
		for range detailWorkers {
			go func() {
				defer workers.Done()
				var buff []byte
				for {
					var irq string
					var ok bool
					select {
					case <-quit:
						return
					case irq, ok = <-irqs:
						if !ok {
							return
						}
					}
					var details IRQDetails
					details, buff, ok = readIRQDetails(root, irq, buff)
					if !ok {
						continue
					}
					select {
					case results <- details:
					case <-quit:
						return
					}
				}
			}()
		}

		go func() {
			defer close(irqs)
			for entry := range faf.ReadDir(root + syskernelirqPath) {
				if !entry.IsDir() {
					continue
				}
				select {
				case irqs <- string(entry.Name):
				case <-quit:
					return
				}
			}
		}()

		// results has many senders, so close it only after the last worker
		// has finished.
		go func() {
			workers.Wait()
			close(results)
		}()

		for details := range results {
			if !yield(details) {
				close(quit)
				return
			}
		}
	}
}

// readIRQDetails reads the actions and effective CPU affinities of the
// specified IRQ, using (and returning) buff as the read buffer. It returns
// false for IRQs without actions or affinities, as well as for IRQs that
// vanished in the meantime.
func readIRQDetails(root, irq string, buff []byte) (IRQDetails, []byte, bool) {
	num, ok := faf.ParseUint([]byte(irq))
	if !ok {
		return IRQDetails{}, buff, false
	}
	details := IRQDetails{Num: uint(num)}

	buff, ok = faf.ReadFile(root+syskernelirqPath+irq+actionsNode, buff)
	actions, ok := chompLine(buff, ok)
	if !ok || len(actions) == 0 {
		return IRQDetails{}, buff, false
	}
	details.Actions = string(actions)

	buff, ok = faf.ReadFile(root+procirqPath+irq+effectiveAffinityNode, buff)
	affinities, ok := chompLine(buff, ok)
	if !ok {
		return IRQDetails{}, buff, false
	}
	details.Affinities = cpuRanges(affinities)
	if len(details.Affinities) == 0 {
		return IRQDetails{}, buff, false
	}
	return details, buff, true
}

// chompLine returns the contents of a single-line pseudo file without its
// trailing newline, and false if the read failed or the line is incomplete.
func chompLine(contents []byte, ok bool) ([]byte, bool) {
	if !ok || len(contents) == 0 || contents[len(contents)-1] != '\n' {
		return nil, false
	}
	return contents[:len(contents)-1], true
}
