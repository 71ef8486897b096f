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
	"bytes"
	"context"
	"strings"

	"gopkg.in/yaml.v3"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const root = "../../testdata/host"

func run(ctx context.Context, args ...string) (code int, stdout string, stderr string) {
	var out, errout bytes.Buffer
	code = Run(ctx, args, &out, &errout)
	return code, out.String(), errout.String()
}

func runRoot(args ...string) (int, string, string) {
	return run(context.Background(), append([]string{"--root", root}, args...)...)
}

var _ = Describe("xproc command", func() {

	Context("usage", func() {

		It("shows help", func() {
			code, _, stderr := run(context.Background(), "-h")
			Expect(code).To(Equal(ExitOK))
			Expect(stderr).To(ContainSubstring("usage: xproc"))
			Expect(stderr).To(ContainSubstring("memory|mem"))

			code, _, stderr = run(context.Background(), "mem", "-h")
			Expect(code).To(Equal(ExitOK))
			Expect(stderr).To(ContainSubstring("usage: xproc memory"))
		})

		DescribeTable("rejects invalid command lines",
			func(args []string, msg string) {
				code, stdout, stderr := run(context.Background(), args...)
				Expect(code).To(Equal(ExitUsage))
				Expect(stdout).To(BeEmpty())
				Expect(stderr).To(ContainSubstring(msg))
			},
			Entry("missing command", []string{}, "missing command"),
			Entry("unknown command", []string{"foo"}, `unknown command "foo"`),
			Entry("unknown flag", []string{"mem", "--bogus"}, "bogus"),
			Entry("bad interval", []string{"mem", "x"}, `invalid number "x"`),
			Entry("missing PID", []string{"ps"}, "PID"),
			Entry("bad slab sort key", []string{"slab", "--sort", "x"}, "sort key"),
		)

	})

	It("shows its version", func() {
		code, stdout, _ := run(context.Background(), "version")
		Expect(code).To(Equal(ExitOK))
		Expect(stdout).To(HavePrefix("xproc "))
		Expect(stdout).To(ContainSubstring("Linux"))
	})

	Context("process status", func() {

		It("shows the default fields as text", func() {
			code, stdout, _ := runRoot("ps", "-P", "1")
			Expect(code).To(Equal(ExitOK))
			Expect(stdout).To(MatchRegexp(`^Name:\s+systemd\n`))
			Expect(stdout).To(MatchRegexp(`(?m)^VmRSS:\s+12836 kB$`))
			Expect(stdout).NotTo(ContainSubstring("CapEff"))
		})

		It("shows all fields", func() {
			code, stdout, _ := runRoot("process", "--pid", "1", "-a")
			Expect(code).To(Equal(ExitOK))
			Expect(stdout).To(MatchRegexp(`(?m)^CapEff:\s+000001ffffffffff$`))
		})

		It("shows YAML", func() {
			code, stdout, _ := runRoot("ps", "-P", "1", "-o", "yaml", "-a")
			Expect(code).To(Equal(ExitOK))
			Expect(stdout).To(HavePrefix("Name: systemd\n"))
			var status map[string]any
			Expect(yaml.Unmarshal([]byte(stdout), &status)).To(Succeed())
			Expect(status).To(HaveKeyWithValue("Pid", 1))
			Expect(status).To(HaveKeyWithValue("VmRSS", "12836 kB"))
			Expect(status).To(HaveKeyWithValue("NSpid", ConsistOf(1)))
			Expect(status).To(HaveKeyWithValue("Groups", BeEmpty()))
		})

		It("reports missing and broken processes", func() {
			code, _, stderr := runRoot("ps", "-P", "666")
			Expect(code).To(Equal(ExitError))
			Expect(stderr).To(ContainSubstring("no such process 666"))

			code, _, stderr = runRoot("ps", "-P", "42")
			Expect(code).To(Equal(ExitError))
			Expect(stderr).To(ContainSubstring("malformed field"))
		})

	})

	Context("memory", func() {

		It("samples the default attributes", func() {
			code, stdout, _ := runRoot("mem", "1", "1")
			Expect(code).To(Equal(ExitOK))
			lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
			Expect(lines).To(HaveLen(2))
			Expect(strings.Fields(lines[0])).To(HaveExactElements("TIME", "KERNEL", "USER", "MemFree", "MemTotal"))
			Expect(lines[1]).To(ContainSubstring(" 400000 kB"))
			Expect(lines[1]).To(ContainSubstring(" 3104096 kB"))
		})

		It("accepts negative positional arguments", func() {
			code, stdout, _ := runRoot("mem", "-5", "1")
			Expect(code).To(Equal(ExitOK))
			Expect(strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")).To(HaveLen(2))
		})

		It("adds extra attributes and warns about unknown ones", func() {
			code, stdout, stderr := runRoot("mem", "-e", "Buffers,NoSuchThing", "--extra", "MemFree", "1", "1")
			Expect(code).To(Equal(ExitOK))
			header := strings.Fields(strings.SplitN(stdout, "\n", 2)[0])
			Expect(header).To(HaveExactElements("TIME", "KERNEL", "USER", "MemFree", "MemTotal", "Buffers"))
			Expect(stderr).To(ContainSubstring("NoSuchThing"))
		})

		It("lists the available attributes", func() {
			code, stdout, _ := runRoot("mem", "--list")
			Expect(code).To(Equal(ExitOK))
			Expect(stdout).To(HavePrefix("MemTotal\n"))
			Expect(stdout).To(ContainSubstring("\nSwapFree\n"))
			Expect(stdout).NotTo(ContainSubstring("FutureField"))
			Expect(stdout).To(HaveSuffix("KERNEL\nUSER\n"))
		})

		It("ends with an empty line when cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			code, stdout, _ := run(ctx, "--root", root, "mem")
			Expect(code).To(Equal(ExitOK))
			Expect(stdout).To(Equal("\n"))
		})

		It("fails on missing sources", func() {
			code, _, stderr := run(context.Background(), "--root", "/nowhere", "mem", "1", "1")
			Expect(code).To(Equal(ExitError))
			Expect(stderr).To(ContainSubstring("xproc: source unavailable"))
		})

		It("logs verbosely", func() {
			_, _, stderr := runRoot("mem", "1", "1")
			Expect(stderr).To(BeEmpty())
			_, _, stderr = runRoot("-v", "1", "mem", "1", "1")
			Expect(stderr).To(ContainSubstring(`"msg"="running"`))
		})

	})

	It("samples vmstat", func() {
		code, stdout, _ := runRoot("vmstat", "1", "1")
		Expect(code).To(Equal(ExitOK))
		lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
		Expect(lines).To(HaveLen(2))
		Expect(strings.Fields(lines[0])).To(HaveExactElements(
			"TIME", "r", "b", "swpd", "free", "buff", "cache", "in", "cs", "us", "sy", "id", "wa", "st"))
		Expect(strings.Fields(lines[1])[1:7]).To(HaveExactElements(
			"3", "1", "500000", "8192000", "100000", "2200000"))

		code, stdout, _ = runRoot("vmstat", "--list")
		Expect(code).To(Equal(ExitOK))
		Expect(stdout).To(HavePrefix("r\nb\nswpd\n"))
		Expect(stdout).To(ContainSubstring("\nMemTotal\n"))
	})

	It("samples the load average", func() {
		code, stdout, _ := runRoot("load", "1", "1")
		Expect(code).To(Equal(ExitOK))
		Expect(stdout).To(ContainSubstring("LOAD_1_MIN"))
		Expect(stdout).To(ContainSubstring(" 0.24 "))
		Expect(stdout).To(ContainSubstring(" 1968353\n"))

		code, stdout, _ = runRoot("loadavg", "--list")
		Expect(code).To(Equal(ExitOK))
		Expect(stdout).To(Equal("LOAD_1_MIN\nLOAD_5_MIN\nLOAD_15_MIN\nNR_RUNNING\nNR_TOTAL\nLAST_PID\n"))
	})

	Context("interrupts", func() {

		It("lists interrupts", func() {
			code, stdout, _ := runRoot("irq", "--list")
			Expect(code).To(Equal(ExitOK))
			Expect(stdout).To(ContainSubstring(" 42: PCI-MSI 1048576-edge foo, bar\n"))
			Expect(stdout).To(ContainSubstring("LOC: Local timer interrupts\n"))

			code, stdout, _ = runRoot("irq", "--list", "--details")
			Expect(code).To(Equal(ExitOK))
			Expect(stdout).To(ContainSubstring(" 42: PCI-MSI 1048576-edge foo, bar [CPUs 1-3,42] [foo,bar]\n"))
			Expect(stdout).To(ContainSubstring("LOC: Local timer interrupts\n"))
		})

		It("samples the top interrupts", func() {
			code, stdout, _ := runRoot("interrupts", "--top", "2", "1", "1")
			Expect(code).To(Equal(ExitOK))
			lines := strings.Split(stdout, "\n")
			Expect(lines).To(HaveLen(6))
			Expect(lines[1]).To(MatchRegexp(`^\s+DEVICE\(IRQ\) IRQs/SECOND$`))
			Expect(lines[2]).To(MatchRegexp(`\(\S+\)\s+0$`))
			Expect(lines[4]).To(BeEmpty())
		})

	})

	It("shows slab caches", func() {
		code, stdout, _ := runRoot("slab", "--top", "3")
		Expect(code).To(Equal(ExitOK))
		lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
		Expect(lines).To(HaveLen(4))
		Expect(strings.Fields(lines[0])[0]).To(Equal("name"))
		Expect(strings.Fields(lines[1])[0]).To(Equal("dentry"))
		Expect(strings.Fields(lines[2])[0]).To(Equal("inode_cache"))
		Expect(strings.Fields(lines[3])[0]).To(Equal("kmalloc-64"))

		code, stdout, _ = runRoot("slab", "--sort", "s", "--top", "1")
		Expect(code).To(Equal(ExitOK))
		Expect(stdout).To(ContainSubstring("ext4_inode_cache"))
	})

	It("shows cgroup controllers", func() {
		code, stdout, _ := runRoot("cgroups")
		Expect(code).To(Equal(ExitOK))
		lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
		Expect(lines).To(HaveLen(5))
		Expect(strings.Fields(lines[0])).To(HaveExactElements("subsys_name", "hierarchy", "num_cgroups", "enabled"))
		Expect(strings.Fields(lines[4])).To(HaveExactElements("rdma", "0", "120", "0"))
	})

	It("shows vmalloc usage", func() {
		code, stdout, _ := runRoot("vmalloc", "--top", "1")
		Expect(code).To(Equal(ExitOK))
		lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
		Expect(lines).To(HaveLen(5))
		Expect(strings.Fields(lines[0])).To(HaveExactElements("areas", "size", "ioremap", "unpurged", "vmalloc", "vmap"))
		Expect(strings.Fields(lines[1])).To(HaveExactElements("5", "76", "kB", "8", "kB", "8", "kB", "40", "kB", "20", "kB"))
		Expect(lines[2]).To(BeEmpty())
		Expect(strings.Fields(lines[4])).To(HaveExactElements("alloc_large_system_hash+0x16b/0x25e", "2", "40", "kB"))
	})

	It("shows the uptime", func() {
		code, stdout, _ := runRoot("uptime")
		Expect(code).To(Equal(ExitOK))
		Expect(stdout).To(ContainSubstring(" 1h0m0s "))
		Expect(stdout).To(ContainSubstring(" 7000.25 "))
	})

})
