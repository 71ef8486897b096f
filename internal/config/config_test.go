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

package config

import (
	"flag"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

func mustLookup(name string) Command {
	GinkgoHelper()
	cmd, ok := Lookup(name)
	Expect(ok).To(BeTrue(), "unknown command %q", name)
	return cmd
}

var _ = Describe("configuration", func() {

	When("looking up commands", func() {

		DescribeTable("names and aliases",
			func(name, canonical string) {
				Expect(mustLookup(name).Name).To(Equal(canonical))
			},
			Entry(nil, "ps", "process"),
			Entry(nil, "mem", "memory"),
			Entry(nil, "loadavg", "load"),
			Entry(nil, "irq", "interrupts"),
			Entry(nil, "vmstat", "vmstat"),
		)

		It("rejects unknown commands", func() {
			_, ok := Lookup("frobnicate")
			Expect(ok).To(BeFalse())
		})

	})

	When("parsing global options", func() {

		It("returns the command and its arguments", func() {
			g, rest, err := ParseGlobal([]string{"-v", "2", "--root", "/tmp", "mem", "-e", "x"}, io.Discard)
			Expect(err).NotTo(HaveOccurred())
			Expect(g).To(Equal(Global{Verbosity: 2, Root: "/tmp"}))
			Expect(rest).To(HaveExactElements("mem", "-e", "x"))
		})

		It("requires a command", func() {
			var out strings.Builder
			_, _, err := ParseGlobal(nil, &out)
			Expect(err).To(MatchError(ErrUsage))
			Expect(out.String()).To(ContainSubstring("interrupts|irq"))
		})

		It("rejects unknown options", func() {
			_, _, err := ParseGlobal([]string{"--frobnicate", "mem"}, io.Discard)
			Expect(err).To(MatchError(ErrUsage))
		})

	})

	When("parsing polling commands", func() {

		It("defaults to one second until cancelled", func() {
			o := Successful(mustLookup("memory").Parse(nil, io.Discard))
			Expect(o.Interval).To(Equal(1))
			Expect(o.Count).To(BeZero())
		})

		DescribeTable("interval and count",
			func(args []string, interval, count int) {
				o := Successful(mustLookup("vmstat").Parse(args, io.Discard))
				Expect(o.Interval).To(Equal(interval))
				Expect(o.Count).To(Equal(count))
			},
			Entry(nil, []string{"5"}, 5, 0),
			Entry(nil, []string{"5", "3"}, 5, 3),
			Entry("clamps interval", []string{"0", "3"}, 1, 3),
			Entry("clamps negative interval", []string{"-2"}, 1, 0),
			Entry("non-positive count is unbounded", []string{"2", "-1"}, 2, 0),
			Entry("negative positionals after flags", []string{"--list", "-3", "-7"}, 1, 0),
		)

		It("accepts flags mixed with positional arguments", func() {
			o := Successful(mustLookup("mem").Parse(
				[]string{"2", "-e", "MemAvailable,Dirty", "5", "--extra", "Shmem", "--list"}, io.Discard))
			Expect(o.Interval).To(Equal(2))
			Expect(o.Count).To(Equal(5))
			Expect(o.Extra).To(HaveExactElements("MemAvailable", "Dirty", "Shmem"))
			Expect(o.List).To(BeTrue())
		})

		DescribeTable("rejecting invalid arguments",
			func(cmd string, args []string) {
				Expect(mustLookup(cmd).Parse(args, io.Discard)).Error().To(MatchError(ErrUsage))
			},
			Entry(nil, "memory", []string{"x"}),
			Entry(nil, "memory", []string{"1", "2", "3"}),
			Entry(nil, "load", []string{"--bogus"}),
			Entry(nil, "slab", []string{"5"}),
			Entry(nil, "slab", []string{"--sort", "x"}),
			Entry(nil, "process", nil),
			Entry(nil, "process", []string{"-P", "1", "-o", "json"}),
		)

		It("passes help requests through", func() {
			var out strings.Builder
			Expect(mustLookup("irq").Parse([]string{"-h"}, &out)).Error().To(MatchError(flag.ErrHelp))
			Expect(out.String()).To(ContainSubstring("[interval] [count]"))
			Expect(out.String()).To(ContainSubstring("-top"))
		})

	})

	When("parsing other commands", func() {

		It("parses process options", func() {
			o := Successful(mustLookup("ps").Parse([]string{"-P", "42", "-o", "yaml", "-a"}, io.Discard))
			Expect(o.PID).To(Equal(42))
			Expect(o.Output).To(Equal(OutputYAML))
			Expect(o.All).To(BeTrue())
		})

		It("parses interrupt options", func() {
			o := Successful(mustLookup("interrupts").Parse([]string{"--top", "3", "2"}, io.Discard))
			Expect(o.Top).To(Equal(3))
			Expect(o.Interval).To(Equal(2))
			o = Successful(mustLookup("interrupts").Parse([]string{"--top", "-1"}, io.Discard))
			Expect(o.Top).To(BeZero())
		})

		It("defaults slab sorting to the number of objects", func() {
			o := Successful(mustLookup("slab").Parse(nil, io.Discard))
			Expect(o.Sort).To(Equal("o"))
		})

	})

})
