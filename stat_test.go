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
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("system stat", func() {

	It("parses the system stat", func() {
		stat := Successful(testHost.SystemStat())
		Expect(stat.CPU).To(Equal(CPUStat{
			User: 1000, Nice: 100, System: 500, Idle: 8000, IOWait: 200,
			IRQ: 10, SoftIRQ: 20, Steal: 5,
		}))
		Expect(stat.CPU.Total()).To(Equal(int64(9835)))
		Expect(stat.CPUs).To(HaveLen(2))
		Expect(stat.CPUs[1].Steal).To(Equal(int64(2)))
		Expect(stat.Intr).To(HaveExactElements(int64(123456), int64(36), int64(0), int64(0), int64(100)))
		Expect(stat.Interrupts()).To(Equal(int64(123456)))
		Expect(stat.Ctxt).To(Equal(int64(987654)))
		Expect(stat.BTime).To(Equal(int64(1700000000)))
		Expect(stat.Processes).To(Equal(int64(4242)))
		Expect(stat.ProcsRunning).To(Equal(int64(3)))
		Expect(stat.ProcsBlocked).To(Equal(int64(1)))
		Expect(stat.SoftIRQ).To(Equal(SoftIRQStat{
			Total: 5000, HI: 1, Timer: 2000, NetTX: 3, NetRX: 400, Block: 5,
			IRQPoll: 0, Tasklet: 6, Sched: 1500, HRTimer: 0, RCU: 1083,
		}))
	})

	It("subtracts CPU times", func() {
		a := CPUStat{User: 10, Idle: 100, Guest: 3}
		b := CPUStat{User: 4, Idle: 50, Guest: 1}
		Expect(a.Sub(b)).To(Equal(CPUStat{User: 6, Idle: 50, Guest: 2}))
	})

	DescribeTable("rejecting malformed contents",
		func(text string, expected error) {
			Expect(ParseSystemStat(strings.NewReader(text), time.Now())).Error().To(
				MatchError(expected))
		},
		Entry("missing aggregate cpu line", "ctxt 1\n", ErrShapeMismatch),
		Entry("short cpu line", "cpu 1 2 3 4 5 6 7\n", ErrShapeMismatch),
		Entry("short per-CPU line", "cpu 1 2 3 4 5 6 7 8 9 10\ncpu0 1 2 3\n", ErrShapeMismatch),
		Entry("short softirq line", "cpu 1 2 3 4 5 6 7 8 9 10\nsoftirq 1 2 3\n", ErrShapeMismatch),
		Entry("garbled counter", "cpu 1 2 3 4 5 6 7 8 9 x\n", ErrMalformedField),
		Entry("garbled scalar", "cpu 1 2 3 4 5 6 7 8 9 10\nctxt many\n", ErrMalformedField),
	)

	It("skips unknown lines", func() {
		stat := Successful(ParseSystemStat(strings.NewReader(
			"page 1 2\ncpu 1 2 3 4 5 6 7 8 9 10\nswap 3 4\n"), time.Now()))
		Expect(stat.CPU.GuestNice).To(Equal(int64(10)))
		Expect(stat.Interrupts()).To(BeZero())
	})

	It("reads the host's system stat", func() {
		stat := Successful(Host.SystemStat())
		Expect(stat.CPUs).NotTo(BeEmpty())
		Expect(stat.BTime).To(BeNumerically(">", 0))
	})

})

var _ = Describe("vmstat", func() {

	now := time.Date(2024, 12, 24, 13, 0, 0, 0, time.Local)

	valueOf := func(attrs []Attr, name string) string {
		for _, attr := range attrs {
			if attr.Name == name {
				return attr.String()
			}
		}
		return "<missing>"
	}

	It("lists the vmstat columns", func() {
		Expect(VMStatNames()).To(HaveExactElements(
			"r", "b", "swpd", "free", "buff", "cache", "in", "cs", "us", "sy", "id", "wa", "st"))
	})

	It("computes since-boot averages without previous sample", func() {
		cur := Successful(ParseSystemStat(
			Successful(testHost.readReader(statNode)), time.Unix(1700000000+1000, 0)))
		mem := Successful(testHost.MemoryInfo())
		attrs := VMStatAttrs(now, &VMStatSample{Cur: cur, Mem: mem}, nil)
		Expect(attrs).To(HaveLen(1 + len(VMStatFields)))
		Expect(attrs[0].Name).To(Equal(TimeAttrName))
		for name, expected := range map[string]string{
			"r": "3", "b": "1",
			"swpd": "500000", "free": "8192000", "buff": "100000", "cache": "2200000",
			"in": "123", "cs": "987",
			"us": "11", "sy": "5", "id": "81", "wa": "2", "st": "0",
		} {
			Expect(valueOf(attrs, name)).To(Equal(expected), "column %s", name)
		}
	})

	It("computes rates and percentages over the interval", func() {
		prev := Successful(ParseSystemStat(strings.NewReader(
			"cpu 900 100 450 7900 200 10 20 5 0 0\nintr 123000\nctxt 987000\n"), now))
		cur := Successful(ParseSystemStat(
			Successful(testHost.readReader(statNode)), now.Add(2*time.Second)))
		mem := Successful(testHost.MemoryInfo())
		s := &VMStatSample{Prev: prev, Cur: cur, Mem: mem}
		attrs := VMStatAttrs(now, s, []string{"in", "cs", "us", "sy", "id", "wa", MemAvailable, "bogus"})
		Expect(attrs).To(HaveExactElements(
			HaveField("Name", TimeAttrName),
			And(HaveField("Name", "in"), HaveField("String()", "228")),
			And(HaveField("Name", "cs"), HaveField("String()", "327")),
			And(HaveField("Name", "us"), HaveField("String()", "40")),
			And(HaveField("Name", "sy"), HaveField("String()", "20")),
			And(HaveField("Name", "id"), HaveField("String()", "40")),
			And(HaveField("Name", "wa"), HaveField("String()", "0")),
			And(HaveField("Name", MemAvailable), HaveField("String()", "12000000 kB")),
		))

		s.Elapsed = 4
		Expect(valueOf(VMStatAttrs(now, s, []string{"in"}), "in")).To(Equal("114"))
	})

})
