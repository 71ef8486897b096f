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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("line cursor", func() {

	It("reaches the end of a line", func() {
		Expect(newBytestring(nil).EOL()).To(BeTrue())
		bstr := newBytestring([]byte("cpu0"))
		Expect(bstr.EOL()).To(BeFalse())
		Expect(bstr.Field()).To(Equal([]byte("cpu0")))
		Expect(bstr.EOL()).To(BeTrue())
	})

	DescribeTable("skipping blanks",
		func(line string, eol bool, pos int) {
			bstr := newBytestring([]byte(line))
			Expect(bstr.SkipSpace()).To(Equal(eol))
			Expect(bstr.pos).To(Equal(pos))
		},
		Entry("blank line", " \t ", true, 3),
		Entry("indented IRQ label", "  42:", false, 2),
		Entry("tab-separated status", "\t\tsystemd", false, 2),
	)

	DescribeTable("skipping expected text",
		func(line, text string, ok bool, pos int) {
			bstr := newBytestring([]byte(line))
			Expect(bstr.SkipText(text)).To(Equal(ok))
			Expect(bstr.pos).To(Equal(pos))
		},
		Entry("CPU column", "CPU12", "CPU", true, 3),
		Entry("other column", "NODE0", "CPU", false, 0),
		Entry("text longer than the line", "CP", "CPU", false, 0),
	)

	DescribeTable("unsigned numbers",
		func(line string, expected uint64, ok bool, pos int) {
			bstr := newBytestring([]byte(line))
			num, numok := bstr.Uint64()
			Expect(numok).To(Equal(ok))
			Expect(bstr.pos).To(Equal(pos))
			if ok {
				Expect(num).To(Equal(expected))
			}
		},
		Entry("nothing", "", uint64(0), false, 0),
		Entry("no digits", "LOC:", uint64(0), false, 0),
		Entry("CPU number in column header", "7 ", uint64(7), true, 1),
		Entry("large counter", "1234567890123", uint64(1234567890123), true, 13),
		Entry("digits followed by text", "16-edge", uint64(16), true, 2),
	)

	It("parses the per-CPU counters of an interrupt line", func() {
		bstr := newBytestring([]byte("        36          0   IO-APIC"))
		for _, expected := range []int64{36, 0} {
			num, ok := bstr.Counter()
			Expect(ok).To(BeTrue())
			Expect(num).To(Equal(expected))
		}
		_, ok := bstr.Counter()
		Expect(ok).To(BeFalse())
		Expect(bstr.Fields()).To(HaveExactElements("IO-APIC"))
	})

	DescribeTable("rejecting counters",
		func(line string) {
			_, ok := newBytestring([]byte(line)).Counter()
			Expect(ok).To(BeFalse())
		},
		Entry("end of line", "   "),
		Entry("trailing text", " 1048576-edge"),
		Entry("overflow", " 9223372036854775808"),
	)

	DescribeTable("counting and splitting fields",
		func(line string, expected []string) {
			Expect(newBytestring([]byte(line)).NumFields()).To(Equal(len(expected)))
			Expect(newBytestring([]byte(line)).Fields()).To(Equal(expected))
		},
		Entry("empty line", "", []string{}),
		Entry("blank line", "  ", []string{}),
		Entry("interrupts header", "           CPU0       CPU1       ", []string{"CPU0", "CPU1"}),
		Entry("cgroups line", "cpuset\t0\t120\t1", []string{"cpuset", "0", "120", "1"}),
	)

	It("returns no field at the end of a line", func() {
		Expect(newBytestring([]byte("   ")).Field()).To(BeNil())
	})

	It("splits off interrupt labels", func() {
		bstr := newBytestring([]byte(" 42:        100"))
		label, ok := bstr.Until(':')
		Expect(ok).To(BeTrue())
		Expect(string(label)).To(Equal(" 42"))
		Expect(bstr.pos).To(Equal(4))

		bstr = newBytestring([]byte("intr 123456 36"))
		_, ok = bstr.Until(':')
		Expect(ok).To(BeFalse())
		Expect(bstr.pos).To(BeZero())
	})

})
